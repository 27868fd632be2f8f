package version

import "testing"

func TestFullVersion(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate })

	Version = "dev"
	if got := FullVersion(); got != "bootprobe development build" {
		t.Errorf("FullVersion() = %q", got)
	}

	Version, GitCommit, BuildDate = "1.2.0", "abc1234", "2026-10-01"
	if got := FullVersion(); got != "bootprobe 1.2.0 (commit: abc1234, built: 2026-10-01)" {
		t.Errorf("FullVersion() = %q", got)
	}
}
