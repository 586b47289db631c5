// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type governanceMetrics struct {
	sidechains      prometheus.Gauge
	proposalsOpened *prometheus.CounterVec
	votesCast       *prometheus.CounterVec
	results         *prometheus.CounterVec
	unmasked        prometheus.Counter
	pinsAdded       prometheus.Counter
	pinsRevoked     prometheus.Counter
	contestsExpired prometheus.Counter
}

func (m *governanceMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.sidechains = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "anchorage_governance_sidechains",
		Help: "number of registered sidechains",
	})
	m.proposalsOpened = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorage_governance_proposals_opened_total",
			Help: "proposals opened by kind",
		},
		[]string{"kind"},
	)
	m.votesCast = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorage_governance_votes_cast_total",
			Help: "ballots cast or changed by choice",
		},
		[]string{"choice"},
	)
	m.results = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchorage_governance_results_total",
			Help: "finalized proposals by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.unmasked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_governance_unmasked_total",
		Help: "masked participants that revealed their address",
	})
	m.pinsAdded = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_pin_added_total",
		Help: "pins added",
	})
	m.pinsRevoked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_pin_revoked_total",
		Help: "pins revoked by a contest",
	})
	m.contestsExpired = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_pin_contest_expired_total",
		Help: "contests decided after the contest window closed",
	})
}

func outcomeLabel(result ActionResult) string {
	switch {
	case !result.Decided:
		return "rejected"
	case result.Applied:
		return "applied"
	default:
		return "no_effect"
	}
}
