package constants

import "testing"

func TestPathConstants(t *testing.T) {
	if DefaultConfigPath == "" {
		t.Error("DefaultConfigPath should not be empty")
	}
	if PidFileName != "pagewatch.pid" {
		t.Errorf("PidFileName = %s, want 'pagewatch.pid'", PidFileName)
	}
	if ResultLogName != "results.log" {
		t.Errorf("ResultLogName = %s, want 'results.log'", ResultLogName)
	}
}
