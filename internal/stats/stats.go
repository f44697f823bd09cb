/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements. See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package stats

import (
	"context"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/version"
	"github.com/segmentio/stats/v4"
	"github.com/segmentio/stats/v4/procstats"
	"github.com/segmentio/stats/v4/prometheus"
	"io"
	"net/http"
	"time"
)

type Service struct {
	logger              *logging.Logger
	statsEnabled        bool
	runtimeStatsEnabled bool
	handler             *prometheus.Handler
	engine              *stats.Engine
	server              *http.Server
	collector           io.Closer
}

func NewStatsService(
	c *config.Config,
) (*Service, error) {

	logger, err := logging.NewLogger("StatsService")
	if err != nil {
		return nil, err
	}

	statsHandler := &prometheus.Handler{
		TrimPrefix: version.BinName,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", statsHandler.ServeHTTP)

	return &Service{
		logger:              logger,
		statsEnabled:        config.GetOrDefault(c, config.PropertyStatsEnabled, false),
		runtimeStatsEnabled: config.GetOrDefault(c, config.PropertyRuntimeStatsEnabled, false),
		handler:             statsHandler,
		engine:              stats.NewEngine(version.BinName, statsHandler),
		server: &http.Server{
			Addr:    config.GetOrDefault(c, config.PropertyStatsAddress, config.DefaultStatsAddress),
			Handler: mux,
		},
	}, nil
}

func (s *Service) Start() error {
	if !s.statsEnabled {
		return nil
	}

	if s.runtimeStatsEnabled {
		s.collector = procstats.StartCollector(procstats.NewGoMetricsWith(s.engine))
	}

	go func() {
		s.logger.Infof("Serving metrics on %s/metrics", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("Metrics endpoint failed: %s", err.Error())
		}
	}()
	return nil
}

func (s *Service) Stop() error {
	if !s.statsEnabled {
		return nil
	}
	if s.collector != nil {
		_ = s.collector.Close()
	}
	s.engine.Flush()
	return s.server.Shutdown(context.Background())
}

// Handler returns the prometheus handler serving all collected
// measures
func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) NewReporter(
	prefix string,
) *Reporter {

	return &Reporter{
		engine: s.engine.WithPrefix(prefix),
	}
}

// Reporter records the measures of a single component
type Reporter struct {
	engine *stats.Engine
}

// Reconciled counts a finished reconciliation by its resulting
// state
func (r *Reporter) Reconciled(
	state string, rebuilt bool, entries int, duration time.Duration,
) {

	r.engine.Incr("reconciliations", stats.T("state", state))
	if rebuilt {
		r.engine.Incr("rebuilds")
	}
	if entries > 0 {
		r.engine.Add("entries", entries)
	}
	r.engine.Observe("duration.seconds", duration.Seconds())
}

// Failed counts a failed operation by its error kind
func (r *Reporter) Failed(
	kind string,
) {

	r.engine.Incr("failures", stats.T("kind", kind))
}

// Deleted counts mappings removed together with their resource
func (r *Reporter) Deleted() {
	r.engine.Incr("deletions")
}
