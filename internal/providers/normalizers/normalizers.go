// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package normalizers implements the pre-TTS text normalization pipeline
//: digits, currency, dates, times, addresses, URLs, symbols,
// and abbreviations are spelled out before a translated sentence is
// handed to a TTS provider, the same normalizer-pipeline shape as
// api/assistant-api/internal/type/normalizer.go's BuildNormalizerPipeline,
// generalized from a provider-specific SSML concern into a
// provider-agnostic text pass.
package normalizers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	numbertowords "moul.io/number-to-words"

	"github.com/rapidaai/translate/internal/commons"
)

// Normalizer transforms text for optimal TTS output.
type Normalizer interface {
	Normalize(text string) string
}

// BuildPipeline resolves a list of normalizer names to Normalizer
// instances, skipping and logging any name it does not recognize.
func BuildPipeline(logger commons.Logger, names []string) []Normalizer {
	out := make([]Normalizer, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		var n Normalizer
		switch name {
		case "currency":
			n = NewCurrencyNormalizer(logger)
		case "date":
			n = NewDateNormalizer(logger)
		case "time":
			n = NewTimeNormalizer(logger)
		case "number", "number-to-word":
			n = NewNumberToWordNormalizer(logger)
		case "symbol":
			n = NewSymbolNormalizer(logger)
		case "address":
			n = NewAddressNormalizer(logger)
		case "url":
			n = NewUrlNormalizer(logger)
		case "abbreviation":
			n = NewAbbreviationNormalizer(logger)
		default:
			logger.Warnf("normalizers: unknown normalizer %q, skipping", name)
			continue
		}
		out = append(out, n)
	}
	return out
}

// Apply runs text through every normalizer in order.
func Apply(normalizers []Normalizer, text string) string {
	for _, n := range normalizers {
		text = n.Normalize(text)
	}
	return text
}

func spellInt(n int64) string {
	words, err := numbertowords.IntegerToWords(n)
	if err != nil {
		return strconv.FormatInt(n, 10)
	}
	return words
}

// --- Currency -----------------------------------------------------------

type currencyNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

func NewCurrencyNormalizer(logger commons.Logger) Normalizer {
	return &currencyNormalizer{logger: logger, re: regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*)\.(\d{2})`)}
}

func (c *currencyNormalizer) Normalize(text string) string {
	return c.re.ReplaceAllStringFunc(text, func(m string) string {
		parts := c.re.FindStringSubmatch(m)
		dollars, err1 := strconv.ParseInt(strings.ReplaceAll(parts[1], ",", ""), 10, 64)
		cents, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			return m
		}
		return fmt.Sprintf("%s dollars and %s cents", spellInt(dollars), spellInt(cents))
	})
}

// --- Date -----------------------------------------------------------------

type dateNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

var monthNames = []string{"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

func NewDateNormalizer(logger commons.Logger) Normalizer {
	return &dateNormalizer{logger: logger, re: regexp.MustCompile(`(\d{4})[-./](\d{1,2})[-./](\d{1,2})`)}
}

func (d *dateNormalizer) Normalize(text string) string {
	return d.re.ReplaceAllStringFunc(text, func(m string) string {
		parts := d.re.FindStringSubmatch(m)
		year, err1 := strconv.Atoi(parts[1])
		month, err2 := strconv.Atoi(parts[2])
		day, err3 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 {
			return m
		}
		return fmt.Sprintf("%s %d, %d", monthNames[month-1], day, year)
	})
}

// --- Time -------------------------------------------------------------

type timeNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

func NewTimeNormalizer(logger commons.Logger) Normalizer {
	return &timeNormalizer{logger: logger, re: regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)}
}

func (t *timeNormalizer) Normalize(text string) string {
	return t.re.ReplaceAllStringFunc(text, func(m string) string {
		parts := t.re.FindStringSubmatch(m)
		hour, err := strconv.Atoi(parts[1])
		if err != nil || hour > 23 {
			return m
		}
		suffix := "AM"
		display := hour
		switch {
		case hour == 0:
			display = 12
		case hour == 12:
			suffix = "PM"
		case hour > 12:
			display = hour - 12
			suffix = "PM"
		}
		return fmt.Sprintf("%d:%s %s", display, parts[2], suffix)
	})
}

// --- Number to word -----------------------------------------------------

type numberToWordNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

func NewNumberToWordNormalizer(logger commons.Logger) Normalizer {
	return &numberToWordNormalizer{logger: logger, re: regexp.MustCompile(`\b\d{1,2}\b`)}
}

func (n *numberToWordNormalizer) Normalize(text string) string {
	return n.re.ReplaceAllStringFunc(text, func(m string) string {
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return m
		}
		return spellInt(v)
	})
}

// --- Symbol ---------------------------------------------------------------

type symbolNormalizer struct {
	logger   commons.Logger
	replacer *strings.Replacer
}

func NewSymbolNormalizer(logger commons.Logger) Normalizer {
	return &symbolNormalizer{logger: logger, replacer: strings.NewReplacer(
		"%", " percent",
		"&", " and ",
		"@", " at ",
		"#", " hash ",
		"°", " degrees ",
		"℃", " degrees celsius",
		"℉", " degrees fahrenheit",
		"£", " pounds ",
		"€", " euros ",
		"¥", " yen ",
		"™", " trademark ",
		"©", " copyright ",
		"®", " registered ",
		"π", " pi ",
		"×", " multiplied by ",
		"÷", " divided by ",
		"∞", " infinity ",
		"≤", " less than or equal to ",
		"≥", " greater than or equal to ",
		"≠", " not equal to ",
	)}
}

func (s *symbolNormalizer) Normalize(text string) string {
	return s.replacer.Replace(text)
}

// --- Address ------------------------------------------------------------

type addressNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

var streetAbbreviations = map[string]string{
	"st": "street", "ave": "avenue", "rd": "road", "blvd": "boulevard", "dr": "drive", "ln": "lane",
}

func NewAddressNormalizer(logger commons.Logger) Normalizer {
	return &addressNormalizer{logger: logger, re: regexp.MustCompile(`(?i)\b(st|ave|rd|blvd|dr|ln)\b\.?`)}
}

func (a *addressNormalizer) Normalize(text string) string {
	return a.re.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.ToLower(strings.TrimSuffix(m, "."))
		if full, ok := streetAbbreviations[key]; ok {
			return full
		}
		return m
	})
}

// --- URL ------------------------------------------------------------------

type urlNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

func NewUrlNormalizer(logger commons.Logger) Normalizer {
	return &urlNormalizer{logger: logger, re: regexp.MustCompile(`\b(?:https?://)?(?:www\.)?[a-zA-Z0-9-]+(?:\.[a-zA-Z0-9-]+)+\b`)}
}

func (u *urlNormalizer) Normalize(text string) string {
	return u.re.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, ".", " dot ")
	})
}

// --- Abbreviation -----------------------------------------------------

type abbreviationNormalizer struct {
	logger commons.Logger
	re     *regexp.Regexp
}

var generalAbbreviations = map[string]string{
	"dr": "doctor", "mr": "mister", "mrs": "missus", "etc": "etcetera",
	"vs": "versus", "jr": "junior", "sr": "senior", "dept": "department",
}

func NewAbbreviationNormalizer(logger commons.Logger) Normalizer {
	return &abbreviationNormalizer{logger: logger, re: regexp.MustCompile(`(?i)\b(dr|mr|mrs|etc|vs|jr|sr|dept)\b\.?`)}
}

func (g *abbreviationNormalizer) Normalize(text string) string {
	return g.re.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.ToLower(strings.TrimSuffix(m, "."))
		if full, ok := generalAbbreviations[key]; ok {
			return full
		}
		return m
	})
}
