// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, m *Metrics) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.resolutionRate.Write(&out))
	return out.GetGauge().GetValue()
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}

func TestMetrics_ObserveFile_Success_IncrementsProcessedAndObjects(t *testing.T) {
	m := NewMetrics()
	m.observeFile(0.05, 3, false)

	assert.Equal(t, float64(1), counterValue(t, m.filesProcessed))
	assert.Equal(t, float64(3), counterValue(t, m.objectsExtracted))
	assert.Equal(t, float64(0), counterValue(t, m.filesFailed))
}

func TestMetrics_ObserveFile_Failure_IncrementsFailedOnly(t *testing.T) {
	m := NewMetrics()
	m.observeFile(0.01, 0, true)

	assert.Equal(t, float64(1), counterValue(t, m.filesFailed))
	assert.Equal(t, float64(0), counterValue(t, m.filesProcessed))
}

func TestMetrics_SetResolutionRate(t *testing.T) {
	m := NewMetrics()
	m.setResolutionRate(3, 1)
	assert.Equal(t, 0.75, gaugeValue(t, m))
}

func TestMetrics_SetResolutionRate_ZeroDenominator(t *testing.T) {
	m := NewMetrics()
	m.setResolutionRate(0, 0)
	assert.Equal(t, float64(0), gaugeValue(t, m))
}
