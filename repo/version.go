// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

import (
	"fmt"
)

const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0
)

// appBuild may be set at link time with
// -ldflags "-X github.com/project-illium/idxd/repo.appBuild=<hash>".
var appBuild string

// VersionString returns the semantic version of the daemon, with
// the build metadata appended when present.
func VersionString() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if appBuild != "" {
		version = fmt.Sprintf("%s+%s", version, appBuild)
	}
	return version
}
