// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces ConfigDir's result when set. os.UserConfigDir
// ignores HOME on some platforms, so tests pin the directory here.
var configDirOverride string

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset clears the ConfigDir override.
func Reset() {
	configDirOverride = ""
}
