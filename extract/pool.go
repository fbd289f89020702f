/*
 * HomeMetrics - Copyright (C) 2024 Nicolas Franchet.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Optimal pool ranges. These drive notification wording only; out-of-range
// readings are stored like any other.
const (
	PHOptimalMin  = 7.0
	PHOptimalMax  = 7.6
	ORPOptimalMin = 650
	ORPOptimalMax = 750
)

var (
	temperaturePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)temp[ée]rature[:\s]+([0-9]+[.,][0-9]+)`),
		regexp.MustCompile(`(?i)temp[:\s]+([0-9]+[.,][0-9]+)`),
		regexp.MustCompile(`([0-9]+[.,][0-9]+)\s*°C`),
	}
	phPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ph[:\s]+([0-9]+[.,][0-9]+)`),
		regexp.MustCompile(`(?i)ph\s*=\s*([0-9]+[.,][0-9]+)`),
	}
	orpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)orp[:\s]+([0-9]+)\s*m?V?`),
		regexp.MustCompile(`(?i)redox[:\s]+([0-9]+)\s*m?V?`),
		regexp.MustCompile(`([0-9]+)\s*mV`),
	}
)

// PoolMetrics scans free text for pool chemistry values. The three matchers
// are independent; a reading with any single metric is valid. Values outside
// physical plausibility (pH beyond 0-14, ORP beyond 0-1000 mV) are treated
// as non-matches, not as readings.
func PoolMetrics(text string, date time.Time, messageID string) (*PoolReading, error) {
	reading := &PoolReading{
		Timestamp: date.UTC(),
		MessageID: messageID,
	}

	if temp, ok := matchFloat(temperaturePatterns, text); ok {
		reading.Temperature = &temp
	}
	if ph, ok := matchFloat(phPatterns, text); ok && ph >= 0 && ph <= 14 {
		reading.PH = &ph
	}
	if orp, ok := matchInt(orpPatterns, text); ok && orp >= 0 && orp <= 1000 {
		reading.ORP = &orp
	}

	if reading.Temperature == nil && reading.PH == nil && reading.ORP == nil {
		return nil, fmt.Errorf("%w in message %s", ErrNoMetricsFound, messageID)
	}
	return reading, nil
}

// matchFloat returns the first capture of the first matching pattern,
// accepting both decimal-point and decimal-comma notation.
func matchFloat(patterns []*regexp.Regexp, text string) (float64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func matchInt(patterns []*regexp.Regexp, text string) (int, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	return 0, false
}
