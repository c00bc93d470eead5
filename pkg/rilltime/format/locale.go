package format

import (
	"fmt"
	"strings"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

// supportedTags and displayLocales are parallel: the matcher picks an
// index into supportedTags and the monday locale at the same index
// renders it. en-US sits first so unmatched languages fall back to it.
var supportedTags = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.CanadianFrench,
	language.Spanish,
	language.Italian,
	language.EuropeanPortuguese,
	language.BrazilianPortuguese,
	language.Dutch,
	language.Russian,
	language.Polish,
	language.Czech,
	language.Danish,
	language.Finnish,
	language.Swedish,
	language.Norwegian,
	language.Japanese,
	language.SimplifiedChinese,
	language.TraditionalChinese,
	language.Korean,
	language.Turkish,
	language.Ukrainian,
	language.Greek,
}

var displayLocales = []monday.Locale{
	monday.LocaleEnUS,
	monday.LocaleEnGB,
	monday.LocaleDeDE,
	monday.LocaleFrFR,
	monday.LocaleFrCA,
	monday.LocaleEsES,
	monday.LocaleItIT,
	monday.LocalePtPT,
	monday.LocalePtBR,
	monday.LocaleNlNL,
	monday.LocaleRuRU,
	monday.LocalePlPL,
	monday.LocaleCsCZ,
	monday.LocaleDaDK,
	monday.LocaleFiFI,
	monday.LocaleSvSE,
	monday.LocaleNbNO,
	monday.LocaleJaJP,
	monday.LocaleZhCN,
	monday.LocaleZhTW,
	monday.LocaleKoKR,
	monday.LocaleTrTR,
	monday.LocaleUkUA,
	monday.LocaleElGR,
}

var localeMatcher = language.NewMatcher(supportedTags)

// mondayLocale resolves a BCP 47 or POSIX locale code to the closest
// supported display locale. Well-formed but unsupported codes fall back
// to en-US; malformed codes are an error.
func mondayLocale(code string) (monday.Locale, error) {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return monday.LocaleEnUS, fmt.Errorf("unknown locale %q: %w", code, err)
	}
	_, index, _ := localeMatcher.Match(tag)
	return displayLocales[index], nil
}
