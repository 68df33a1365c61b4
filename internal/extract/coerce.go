package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// reporter is the shared log-and-capture helper embedded by every extractor.
type reporter struct {
	logger *logrus.Logger
	hub    *sentry.Hub
}

func (r reporter) logInfo(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(fields).Info(message)
}

func (r reporter) logWarn(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(fields).Warn(message)
}

func (r reporter) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if r.logger != nil {
		entry := r.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if r.hub != nil {
		r.hub.CaptureException(err)
	}
}

// yesBool coerces the wiki's "Yes"/"No" (and occasional "true") convention.
func yesBool(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.EqualFold(trimmed, "yes") || strings.EqualFold(trimmed, "true")
}

// immuneBool coerces the "Immune"/"Not immune" convention.
func immuneBool(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.EqualFold(trimmed, "immune") || yesBool(trimmed)
}

// looseInt parses an integer out of free-text, tolerating thousands
// separators. Unparseable input coerces to zero.
func looseInt(value string) int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	parsed, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return parsed
}

// looseFloat parses a float out of free-text. Unparseable input coerces to zero.
func looseFloat(value string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}

var variantSuffixPattern = regexp.MustCompile(`\d+$`)

// variantKey splits a numerically suffixed template key ("id2") into its base
// key and variant index. Keys without a suffix return index 0.
func variantKey(key string) (string, int) {
	suffix := variantSuffixPattern.FindString(key)
	if suffix == "" {
		return key, 0
	}

	index, err := strconv.Atoi(suffix)
	if err != nil || index == 0 {
		return key, 0
	}
	return strings.TrimSuffix(key, suffix), index
}

// hasVariantKeys reports whether any template key carries the numeric suffix
// convention, i.e. the page describes multiple sibling entities.
func hasVariantKeys(params map[string]string) bool {
	for key := range params {
		if base, index := variantKey(key); base != "" && index > 1 {
			return true
		}
	}
	return false
}

// idList parses a comma-separated id list ("4353,4354") into ints, skipping
// blanks.
func idList(value string) []int {
	var ids []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.Atoi(part); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
