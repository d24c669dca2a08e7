package store

import "testing"

func TestSettingsGetSet(t *testing.T) {
	s := NewSettingsStore(testDB(t))

	if _, err := s.Get("missing"); err == nil {
		t.Fatal("expected error for missing key")
	}

	if err := s.Set("sync_config", `{"baseUrl":"http://x"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get("sync_config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `{"baseUrl":"http://x"}` {
		t.Errorf("get = %q", got)
	}

	// Set replaces.
	if err := s.Set("sync_config", `{}`); err != nil {
		t.Fatalf("set again: %v", err)
	}
	if got, _ := s.Get("sync_config"); got != `{}` {
		t.Errorf("get after replace = %q", got)
	}
}

func TestGetSyncSettings(t *testing.T) {
	s := NewSettingsStore(testDB(t))

	settings, err := s.GetSyncSettings()
	if err != nil {
		t.Fatalf("get sync settings: %v", err)
	}
	if len(settings) != 0 {
		t.Fatalf("expected empty map, got %v", settings)
	}

	s.Set("sync_config", `{"baseUrl":"http://x"}`)
	s.Set("sync_auto_connect", "true")
	s.Set("archive_enabled", "true")

	settings, err = s.GetSyncSettings()
	if err != nil {
		t.Fatalf("get sync settings: %v", err)
	}
	if settings["sync_auto_connect"] != "true" {
		t.Errorf("sync_auto_connect = %q", settings["sync_auto_connect"])
	}
	if _, ok := settings["archive_enabled"]; ok {
		t.Error("archive key leaked into sync settings")
	}
}

func TestGetArchiveSettings(t *testing.T) {
	s := NewSettingsStore(testDB(t))

	s.Set("archive_enabled", "true")
	s.Set("archive_schedule_hour", "3")
	s.Set("archive_retention_days", "90")

	settings, err := s.GetArchiveSettings()
	if err != nil {
		t.Fatalf("get archive settings: %v", err)
	}
	if settings["archive_enabled"] != "true" || settings["archive_schedule_hour"] != "3" {
		t.Errorf("settings = %v", settings)
	}
}
