package destmap

import "testing"

func TestMap_DefaultRules(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "active check keeps only basename",
			path: "active_checks/sub/check_foo",
			want: "/omd/sites/mysite/lib/nagios/plugins/check_foo",
		},
		{
			name: "active check directly below prefix",
			path: "active_checks/check_bar",
			want: "/omd/sites/mysite/lib/nagios/plugins/check_bar",
		},
		{
			name: "frontend source strips prefix",
			path: "packages/cmk-frontend/src/js/app.ts",
			want: "/omd/sites/mysite/share/check_mk/web/htdocs/js/app.ts",
		},
		{
			name: "default keeps full path",
			path: "cmk/base/config.py",
			want: "/omd/sites/mysite/lib/python3/cmk/base/config.py",
		},
		{
			name: "gui file uses default rule",
			path: "cmk/gui/main.py",
			want: "/omd/sites/mysite/lib/python3/cmk/gui/main.py",
		},
		{
			name: "prefix must align on segment boundary",
			path: "active_checksums/foo",
			want: "/omd/sites/mysite/lib/python3/active_checksums/foo",
		},
	}

	m := New("", "mysite", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Map(tt.path); got != tt.want {
				t.Errorf("Map(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMap_CustomRoot(t *testing.T) {
	m := New("/opt/omd/sites", "dev", nil)

	want := "/opt/omd/sites/dev/lib/python3/cmk/base/config.py"
	if got := m.Map("cmk/base/config.py"); got != want {
		t.Errorf("Map() = %q, want %q", got, want)
	}
}

func TestMap_FirstMatchWins(t *testing.T) {
	rules := append([]Rule{
		{Prefix: "active_checks/special", Dest: "local/lib", Mode: ModeFullPath},
	}, DefaultRules()...)
	m := New("", "mysite", rules)

	want := "/omd/sites/mysite/local/lib/active_checks/special/check_x"
	if got := m.Map("active_checks/special/check_x"); got != want {
		t.Errorf("Map() = %q, want %q", got, want)
	}

	// Paths outside the custom rule still hit the built-in one.
	want = "/omd/sites/mysite/lib/nagios/plugins/check_y"
	if got := m.Map("active_checks/check_y"); got != want {
		t.Errorf("Map() = %q, want %q", got, want)
	}
}

func TestMap_Deterministic(t *testing.T) {
	m := New("", "mysite", nil)
	path := "packages/cmk-frontend/src/css/theme.css"

	if first, second := m.Map(path), m.Map(path); first != second {
		t.Errorf("repeated mapping differs: %q vs %q", first, second)
	}
}

func TestModeValid(t *testing.T) {
	for _, mode := range []Mode{ModeFullPath, ModeStripPrefix, ModeBasename} {
		if !mode.Valid() {
			t.Errorf("mode %q should be valid", mode)
		}
	}
	if Mode("copy").Valid() {
		t.Error("unknown mode should be invalid")
	}
}
