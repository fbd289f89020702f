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

package run

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nfranchet/homemetrics/stream"
)

func TestPrintReportsPerMessageFailuresExitClean(t *testing.T) {
	err := printReports([]*stream.Report{
		{Stream: "xsense", Found: 3, Processed: 2, Failed: 1, Failures: []stream.Failure{
			{MessageID: "m2", Reason: "malformed attachment"},
		}},
		{Stream: "blueriot", Found: 1, Processed: 1},
	})
	assert.NoError(t, err)
}

func TestPrintReportsBatchErrorExitsNonZero(t *testing.T) {
	err := printReports([]*stream.Report{
		{Stream: "xsense", BatchErr: "unknown label: homemetrics/todo/xsense"},
		{Stream: "blueriot", Found: 1, Processed: 1},
	})
	assert.ErrorContains(t, err, "1 stream(s) failed")
}
