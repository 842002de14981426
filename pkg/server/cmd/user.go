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

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(newUserCreateCmd())

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		email       string
		password    string
		role        string
		dbPath      string
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(config.Params{
				DBPath:      dbPath,
				DatabaseURL: databaseURL,
			})
			if err != nil {
				return errors.Wrap(err, "loading config")
			}

			a, err := initApp(cfg)
			if err != nil {
				return errors.Wrap(err, "initializing app")
			}
			defer closeDB(a.DB)

			user, err := a.CreateUser(email, password, role)
			if err != nil {
				return errors.Wrap(err, "creating user")
			}

			fmt.Printf("User created successfully\n")
			fmt.Printf("Email: %s\n", user.Email)
			fmt.Printf("UUID: %s\n", user.UUID)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "user email address (required)")
	f.StringVar(&password, "password", "", "user password (required)")
	f.StringVar(&role, "role", "trainer", "user role: trainer or client")
	f.StringVar(&dbPath, "dbPath", "", "path to the SQLite database file (env: DBPath)")
	f.StringVar(&databaseURL, "databaseUrl", "", "PostgreSQL connection URL; takes precedence over dbPath (env: DATABASE_URL)")

	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
