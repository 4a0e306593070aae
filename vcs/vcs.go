package vcs

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed commit.txt
var CommitId string

const Name = "olebridge"

func GetCommit() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return strings.TrimSpace(CommitId)
}

// GetSignature is sent in the Server header and logged at startup.
func GetSignature() string {
	commit := GetCommit()
	if commit == "" {
		return Name
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return Name + "/" + commit
}
