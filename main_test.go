package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const parentSchema = `schema parent {
    document parent {
        field name type string {}
    }
    rank-profile base {
        function score() {
            expression: attribute(name)
        }
    }
}
`

const childSchema = `schema child inherits parent {
    document child inherits parent {
    }
    rank-profile tuned inherits base {
        first-phase {
            expression: score
        }
    }
}
`

const shopSchema = `schema shop {
    document shop {
        field price type int {
            indexing: attribute | summary
        }
    }
    document-summary main {
        summary price {}
    }
    rank-profile cheap {
        first-phase {
            expression: attribute(price)
        }
    }
}
`

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "schemas/parent.sd", parentSchema)
	writeTestFile(t, dir, "schemas/child.sd", childSchema)
	writeTestFile(t, dir, "src/Search.java", "class Search {\n    String profile = \"tuned\";\n}\n")
	return dir
}

func createShopRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "schemas/shop.sd", shopSchema)
	writeTestFile(t, dir, "src/Query.java", "class Query {\n    String f = \"price\";\n}\n")
	writeTestFile(t, dir, "src/test/QueryTest.java", "class QueryTest {\n    String f = \"price\";\n}\n")
	writeTestFile(t, dir, "queries/cheap.yql", "select * from shop where price > 10\n")
	return dir
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("run %v: %v\nstderr: %s", args, err, stderr)
	}
	return out
}

func TestRunMap(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "map", createSampleRepo(t))

	for _, want := range []string{
		"# Schema Map",
		"repo:",
		"files[3]",
		"schemas/parent.sd,base,Rank Profile,5,parent",
		"schemas/child.sd,schemas/parent.sd,",
		"src/Search.java,schemas/child.sd,tuned",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "references[") {
		t.Errorf("full map should not include the references table:\n%s", out)
	}
}

func TestRunMapRaw(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "map", "--raw", createSampleRepo(t))

	if !strings.HasPrefix(out, "repo:") {
		t.Errorf("--raw output should start with repo:, got:\n%s", out)
	}
}

func TestRunMapMaxFiles(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "map", "-n", "1", createSampleRepo(t))

	if !strings.Contains(out, "files[1]") {
		t.Errorf("expected 1 file, got:\n%s", out)
	}
}

func TestRunMapLanguageFilter(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "map", "-l", "sd", createSampleRepo(t))

	if !strings.Contains(out, "files[2]") || strings.Contains(out, "Search.java") {
		t.Errorf("expected only schema files, got:\n%s", out)
	}
}

func TestRunMapErrors(t *testing.T) {
	t.Parallel()
	repo := createSampleRepo(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no files", []string{"map", t.TempDir()}, "no supported files"},
		{"unsupported language", []string{"map", "-l", "python", repo}, "unsupported language"},
		{"not a directory", []string{"map", filepath.Join(repo, "schemas", "parent.sd")}, "not a directory"},
		{"no filter match", []string{"map", "--symbol", "nothing-like-this", repo}, "no files match"},
		{"bad log level", []string{"--log-level", "loud", "map", repo}, "invalid log level"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := runCmd(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRunMapMaxFileSize(t *testing.T) {
	t.Parallel()
	repo := createSampleRepo(t)
	writeTestFile(t, repo, "schemas/huge.sd", "schema huge {\n"+strings.Repeat("    # padding\n", 100)+"}\n")

	out, stderr, err := runCmd(t, "map", "--max-file-size", "500", repo)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out, "huge.sd") {
		t.Errorf("large file should be skipped:\n%s", out)
	}
	if !strings.Contains(stderr, "Skipping large file") {
		t.Errorf("expected a warning, got stderr:\n%s", stderr)
	}
}

func TestRunMapCache(t *testing.T) {
	t.Parallel()
	repo := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "cache.toon")

	first := mustRun(t, "map", "--raw", "--cache", cachePath, repo)
	data, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if string(data) != first {
		t.Errorf("cache content differs from output")
	}

	// A fresh cache is served as is.
	sentinel := "repo: cached\n"
	if err := os.WriteFile(cachePath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(cachePath, future, future); err != nil {
		t.Fatal(err)
	}
	if out := mustRun(t, "map", "--raw", "--cache", cachePath, repo); out != sentinel {
		t.Errorf("expected cached output, got:\n%s", out)
	}

	// Filters bypass the cache.
	out := mustRun(t, "map", "--symbol", "base", "--cache", cachePath, repo)
	if strings.Contains(out, "cached") {
		t.Errorf("filtered run should not use the cache:\n%s", out)
	}
}

func TestRunMapSymbolFilter(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "map", "--raw", "--symbol", "base", createSampleRepo(t))

	if !strings.Contains(out, "references[") {
		t.Errorf("--symbol output should include the references table:\n%s", out)
	}
	if !strings.Contains(out, "schemas/parent.sd,base,Rank Profile") {
		t.Errorf("missing matching declaration:\n%s", out)
	}
	if strings.Contains(out, ",tuned,Rank Profile") {
		t.Errorf("non-matching declaration listed:\n%s", out)
	}
}

func TestRunMapFileFilter(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "map", "--raw", "--file", "child", createSampleRepo(t))

	if !strings.Contains(out, "files[1]") || !strings.Contains(out, "schemas/child.sd") {
		t.Errorf("expected only child.sd:\n%s", out)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"--version"}, {"version"}} {
		out := mustRun(t, args...)
		if out != "sdguide dev\n" {
			t.Errorf("%v: version output = %q", args, out)
		}
	}
}

func TestRunUsages(t *testing.T) {
	t.Parallel()
	repo := createShopRepo(t)

	out := mustRun(t, "usages", "price", repo)
	for _, want := range []string{
		"targets[1]{name,type}:\n  price,Field (in Document)",
		"groups[5]",
		"Document-Summary main,schemas/shop.sd,7,1",
		"Rank Profile cheap,schemas/shop.sd,10,1",
		"queries/cheap.yql,queries/cheap.yql,1,26,text",
		"usages[5]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunUsagesSummaryOnly(t *testing.T) {
	t.Parallel()
	repo := createShopRepo(t)

	out := mustRun(t, "usages", "price", repo, "-g", "summary", "--skip-tests")
	if !strings.Contains(out, "groups[1]") {
		t.Errorf("expected only the document-summary group:\n%s", out)
	}
	if !strings.Contains(out, "usages[4]") {
		t.Errorf("expected test code to be skipped:\n%s", out)
	}
	if strings.Contains(out, "QueryTest") {
		t.Errorf("test file listed:\n%s", out)
	}

	if _, _, err := runCmd(t, "usages", "price", repo, "-g", "bogus"); err == nil {
		t.Error("expected an error for an unknown grouping")
	}
}

func TestRunDeclarations(t *testing.T) {
	t.Parallel()
	repo := createShopRepo(t)

	out := mustRun(t, "declarations", repo)
	for _, want := range []string{"Field (in Document)", "Document-Summary", "Rank Profile", "cheap", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "declarations", "--type", "rank-profile", repo)
	if !strings.Contains(out, "cheap") || strings.Contains(out, "Document-Summary") {
		t.Errorf("--type should keep only rank profiles:\n%s", out)
	}

	if _, _, err := runCmd(t, "declarations", "--type", "table", repo); err == nil {
		t.Error("expected an error for an unknown declaration type")
	}
}

func TestRunDeclarationTypes(t *testing.T) {
	t.Parallel()
	out := mustRun(t, "declarations", "--types")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 13 {
		t.Fatalf("expected 13 declaration types, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "Document" || lines[12] != "ItemRawScore (first use in file)" {
		t.Errorf("unexpected labels:\n%s", out)
	}
}

func TestDeclarationType(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"Rank Profile", "rank-profile", "RANK_PROFILE", "rankprofile"} {
		d, ok := declarationType(label)
		if !ok || d.String() != "Rank Profile" {
			t.Errorf("declarationType(%q) = %v, %v", label, d, ok)
		}
	}
	if _, ok := declarationType("profile"); ok {
		t.Error("partial labels should not match")
	}
}

func writeTesterConfig(t *testing.T, script string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "sdguide.yaml")
	cfg := "tester:\n  suites:\n    system:\n      command: [\"sh\", \"-c\", " + quoteYAML(script) + "]\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quoteYAML(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func TestRunTesterSuccess(t *testing.T) {
	t.Parallel()
	cfg := writeTesterConfig(t, `echo "hello from $SDGUIDE_TEST_SUITE"`)

	out := mustRun(t, "--config", cfg, "tester", "run", "system", "--poll", "10ms")
	for _, want := range []string{"hello from SYSTEM_TEST", "SYSTEM_TEST SUCCESS", "PASSED"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunTesterFailure(t *testing.T) {
	t.Parallel()
	cfg := writeTesterConfig(t, `echo '{"Action":"fail","Package":"p","Test":"TestBroken"}'; exit 1`)

	out, _, err := runCmd(t, "--config", cfg, "tester", "run", "system", "--poll", "10ms")
	if err == nil || !strings.Contains(err.Error(), "finished with status FAILURE") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "FAIL TestBroken") || !strings.Contains(out, "PACKAGE") {
		t.Errorf("expected the failing test in the log and report:\n%s", out)
	}
}

func TestRunTesterTestConfig(t *testing.T) {
	t.Parallel()
	cfg := writeTesterConfig(t, `cat "$SDGUIDE_TEST_CONFIG"`)
	testCfg := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(testCfg, []byte(`{"zone":"dev"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, "--config", cfg, "tester", "run", "system", "-t", testCfg, "--poll", "10ms")
	if !strings.Contains(out, `{"zone":"dev"}`) {
		t.Errorf("suite should see the test config:\n%s", out)
	}
}

func TestRunTesterRejected(t *testing.T) {
	t.Parallel()
	cfg := writeTesterConfig(t, "true")

	_, _, err := runCmd(t, "--config", cfg, "tester", "run", "perf")
	if err == nil || !strings.Contains(err.Error(), "unknown test suite") {
		t.Errorf("err = %v", err)
	}

	_, _, err = runCmd(t, "--config", cfg, "tester", "run", "production")
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("err = %v", err)
	}
}
