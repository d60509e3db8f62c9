package amuza

import "testing"

func TestParseStatusIdle(t *testing.T) {
	status, err := parseStatus("@q,1,0,0000,0000")
	if err != nil {
		t.Fatalf("parseStatus failed: %v", err)
	}
	if status.InProgress {
		t.Fatal("method 0 means idle")
	}
	if status.State != StateResting {
		t.Fatalf("state = %v", status.State)
	}
}

func TestParseStatusInProgress(t *testing.T) {
	status, err := parseStatus("@q,10,1,0013,0090")
	if err != nil {
		t.Fatalf("parseStatus failed: %v", err)
	}
	if !status.InProgress {
		t.Fatal("expected in-progress status")
	}
	if status.Well != 13 || status.Remaining != 90 {
		t.Fatalf("well/remaining = %d/%d", status.Well, status.Remaining)
	}
	if status.State != StateMoving {
		t.Fatalf("state = %v", status.State)
	}
}

func TestParseStatusRejectsShortFrames(t *testing.T) {
	if _, err := parseStatus("@q,1"); err == nil {
		t.Fatal("short frame should fail")
	}
	if _, err := parseStatus("@q,x,y"); err == nil {
		t.Fatal("non-numeric frame should fail")
	}
}

func TestParseExit(t *testing.T) {
	report, err := parseExit("@E,0")
	if err != nil {
		t.Fatalf("parseExit failed: %v", err)
	}
	if report.Code != 0 {
		t.Fatalf("code = %d", report.Code)
	}
}

func TestMachineStateString(t *testing.T) {
	if StateTrayEjected.String() != "tray_ejected" {
		t.Fatalf("unexpected label %q", StateTrayEjected.String())
	}
	if MachineState(42).String() != "unknown(42)" {
		t.Fatalf("unexpected label %q", MachineState(42).String())
	}
}
