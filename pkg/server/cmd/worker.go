/* Copyright 2025 GymFlow Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/buildinfo"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/config"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/jobs"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const workerStopTimeout = 30 * time.Second

func newWorkerCmd() *cobra.Command {
	var (
		dbPath            string
		databaseURL       string
		logLevel          string
		logFormat         string
		workerConcurrency int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start a standalone job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(config.Params{
				DBPath:            dbPath,
				DatabaseURL:       databaseURL,
				LogLevel:          logLevel,
				LogFormat:         logFormat,
				WorkerConcurrency: workerConcurrency,
			})
			if err != nil {
				return errors.Wrap(err, "loading config")
			}

			log.SetLevel(cfg.LogLevel)
			log.SetFormat(cfg.LogFormat)

			a, err := initApp(cfg)
			if err != nil {
				return errors.Wrap(err, "initializing app")
			}
			defer closeDB(a.DB)

			registry := jobs.New(&a).Registry()
			worker := queue.NewWorker(a.Queue, registry, cfg.WorkerConcurrency)
			worker.Start()

			scheduler, err := a.Queue.StartTrimScheduler(cfg.TrimSchedule, cfg.TrimKeepCompleted, cfg.TrimKeepFailed)
			if err != nil {
				return errors.Wrap(err, "starting trim scheduler")
			}
			defer scheduler.Stop()

			log.WithFields(log.Fields{
				"version":     buildinfo.Version,
				"concurrency": cfg.WorkerConcurrency,
			}).Info("GymFlow worker starting")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info("GymFlow worker stopping")

			ctx, cancel := context.WithTimeout(context.Background(), workerStopTimeout)
			defer cancel()

			return worker.Stop(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&dbPath, "dbPath", "", "path to the SQLite database file (env: DBPath)")
	f.StringVar(&databaseURL, "databaseUrl", "", "PostgreSQL connection URL; takes precedence over dbPath (env: DATABASE_URL)")
	f.StringVar(&logLevel, "logLevel", "", "log level: debug, info, warn, or error (env: LOG_LEVEL, default: info)")
	f.StringVar(&logFormat, "logFormat", "", "log format: json or text (env: LOG_FORMAT, default: json)")
	f.IntVar(&workerConcurrency, "workerConcurrency", 0, "number of concurrent job workers (env: WORKER_CONCURRENCY, default: 5)")

	return cmd
}
