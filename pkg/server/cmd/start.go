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
	"fmt"
	"net/http"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/buildinfo"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/config"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/controllers"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/jobs"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var (
		appEnv              string
		port                string
		webURL              string
		dbPath              string
		databaseURL         string
		disableRegistration bool
		logLevel            string
		logFormat           string
		workerConcurrency   int
		withWorker          bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(config.Params{
				AppEnv:              appEnv,
				Port:                port,
				WebURL:              webURL,
				DBPath:              dbPath,
				DatabaseURL:         databaseURL,
				DisableRegistration: disableRegistration,
				LogLevel:            logLevel,
				LogFormat:           logFormat,
				WorkerConcurrency:   workerConcurrency,
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

			if withWorker {
				registry := jobs.New(&a).Registry()
				worker := queue.NewWorker(a.Queue, registry, cfg.WorkerConcurrency)
				worker.Start()

				scheduler, err := a.Queue.StartTrimScheduler(cfg.TrimSchedule, cfg.TrimKeepCompleted, cfg.TrimKeepFailed)
				if err != nil {
					return errors.Wrap(err, "starting trim scheduler")
				}
				defer scheduler.Stop()
			}

			ctl := controllers.New(&a)
			rc := controllers.RouteConfig{
				WebRoutes:   controllers.NewWebRoutes(&a, ctl),
				APIRoutes:   controllers.NewAPIRoutes(&a, ctl),
				Controllers: ctl,
			}

			r, err := controllers.NewRouter(&a, rc)
			if err != nil {
				return errors.Wrap(err, "initializing router")
			}

			log.WithFields(log.Fields{
				"version": buildinfo.Version,
				"port":    cfg.Port,
			}).Info("GymFlow server starting")

			return http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r)
		},
	}

	f := cmd.Flags()
	f.StringVar(&appEnv, "appEnv", "", "application environment (env: APP_ENV, default: PRODUCTION)")
	f.StringVar(&port, "port", "", "server port (env: PORT, default: 3000)")
	f.StringVar(&webURL, "webUrl", "", "full URL to the web client without trailing slash (env: WebURL)")
	f.StringVar(&dbPath, "dbPath", "", "path to the SQLite database file (env: DBPath)")
	f.StringVar(&databaseURL, "databaseUrl", "", "PostgreSQL connection URL; takes precedence over dbPath (env: DATABASE_URL)")
	f.BoolVar(&disableRegistration, "disableRegistration", false, "disable user registration (env: DisableRegistration)")
	f.StringVar(&logLevel, "logLevel", "", "log level: debug, info, warn, or error (env: LOG_LEVEL, default: info)")
	f.StringVar(&logFormat, "logFormat", "", "log format: json or text (env: LOG_FORMAT, default: json)")
	f.IntVar(&workerConcurrency, "workerConcurrency", 0, "number of concurrent job workers (env: WORKER_CONCURRENCY, default: 5)")
	f.BoolVar(&withWorker, "withWorker", false, "process queued jobs in this process")

	return cmd
}
