package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderProxyConfig(t *testing.T) {
	tpl, err := Default(KindProxy)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	out := RenderProxyConfig(
		ProxySite{Hostname: "example.com", DocumentRoot: "/srv/www/example.com/public", Socket: "/run/php/example.com-8.2.sock"},
		LogPaths{Access: "/logs/example.com/access.log", Error: "/logs/example.com/error.log"},
		tpl,
	)

	contains := []string{
		"server_name example.com;",
		"root /srv/www/example.com/public;",
		"fastcgi_pass unix:/run/php/example.com-8.2.sock;",
		"access_log /logs/example.com/access.log;",
		"error_log /logs/example.com/error.log;",
	}
	for _, s := range contains {
		if !strings.Contains(out, s) {
			t.Errorf("rendered proxy config missing %q\n%s", s, out)
		}
	}
	if strings.Contains(out, "{{") {
		t.Errorf("unreplaced placeholder in output:\n%s", out)
	}
}

func TestRenderPoolConfig(t *testing.T) {
	tpl, err := Default(KindPool)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	out := RenderPoolConfig(PoolSite{Hostname: "a.test", Socket: "/run/php/a.test-8.1.sock"}, "www-data", "web", tpl)

	for _, s := range []string{"[a.test]", "user = www-data", "group = web", "listen = /run/php/a.test-8.1.sock", "listen.group = web"} {
		if !strings.Contains(out, s) {
			t.Errorf("rendered pool config missing %q\n%s", s, out)
		}
	}
}

func TestRender_Literal(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"php socket alias", "pass {{PHP_SOCKET}} and {{SOCKET}}", "pass /s.sock and /s.sock"},
		{"unknown placeholder kept", "x {{UNKNOWN}} {{HOSTNAME}}", "x {{UNKNOWN}} h.test"},
		{"repeated", "{{HOSTNAME}}-{{HOSTNAME}}", "h.test-h.test"},
		{"trimmed", "\n\n  {{HOSTNAME}}  \n", "h.test"},
		{"no templating syntax", "{{ .Domain }} {{if}}", "{{ .Domain }} {{if}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderPoolConfig(PoolSite{Hostname: "h.test", Socket: "/s.sock"}, "u", "g", tt.tpl)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderIndex(t *testing.T) {
	tpl, err := Default(KindIndex)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	out := RenderIndex("site.test", tpl)
	if !strings.Contains(out, "$hostname = 'site.test';") {
		t.Errorf("index does not embed hostname:\n%s", out)
	}
	if !strings.Contains(out, "htmlspecialchars($hostname)") {
		t.Errorf("placeholder template lost its PHP variable:\n%s", out)
	}
}

func TestRenderIndex_BareHostnameVariable(t *testing.T) {
	tpl := `<title>Welcome to <?php echo htmlspecialchars("$hostname"); ?></title>`
	got := RenderIndex("site.test", tpl)
	want := `<title>Welcome to <?php echo htmlspecialchars("site.test"); ?></title>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "nginx.tpl")
	if err := os.WriteFile(custom, []byte("server_name {{HOSTNAME}};"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(KindProxy, custom)
	if err != nil || got != "server_name {{HOSTNAME}};" {
		t.Errorf("Load(custom) = %q, %v", got, err)
	}

	def, _ := Default(KindPool)
	for _, path := range []string{"", filepath.Join(dir, "missing.tpl")} {
		got, err := Load(KindPool, path)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", path, err)
		}
		if got != def {
			t.Errorf("Load(%q) did not fall back to the embedded default", path)
		}
	}

	if _, err := Load(KindProxy, dir); err == nil {
		t.Error("Load(directory) should fail")
	}
}

func TestDefault_UnknownKind(t *testing.T) {
	if _, err := Default(Kind("caddy")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
