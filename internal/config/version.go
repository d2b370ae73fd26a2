package config

import (
	"fmt"
	"slices"
	"strings"
)

// CurrentConfigVersion is the configVersion new files should declare.
const CurrentConfigVersion = "1"

// SupportedConfigVersions lists every configVersion Parse accepts.
var SupportedConfigVersions = []string{CurrentConfigVersion}

func checkConfigVersion(v string) error {
	if slices.Contains(SupportedConfigVersions, v) {
		return nil
	}
	return fmt.Errorf("unsupported configVersion: %q (supported: %s)", v, strings.Join(SupportedConfigVersions, ", "))
}
