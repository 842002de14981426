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

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the server",
		Run: func(cmd *cobra.Command, args []string) {
			if buildinfo.CommitHash == "" {
				fmt.Printf("gymflow-server-%s\n", buildinfo.Version)
				return
			}

			fmt.Printf("gymflow-server-%s (%s)\n", buildinfo.Version, buildinfo.CommitHash)
		},
	}
}
