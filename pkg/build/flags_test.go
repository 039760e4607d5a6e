// SPDX-License-Identifier: MIT
package build

import "testing"

func TestInitializeKeepsDefaultsWhenUnset(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	flags := GetBuildFlags()
	if flags.Name == "" {
		t.Error("Name should never be empty")
	}
	if flags.Description == "" {
		t.Error("Description should never be empty")
	}
	if flags.Version == "" {
		t.Error("Version should never be empty")
	}
}

func TestInitializeAppliesLinkerValues(t *testing.T) {
	origName, origVersion := buildName, buildVersion
	defer func() {
		buildName, buildVersion = origName, origVersion
	}()

	buildName = "spectral-ci"
	buildVersion = "1.2.3"

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	flags := GetBuildFlags()
	if flags.Name != "spectral-ci" {
		t.Errorf("Name = %q, want %q", flags.Name, "spectral-ci")
	}
	if flags.Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", flags.Version, "1.2.3")
	}
}
