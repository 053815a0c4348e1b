package database

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
)

var tables = []string{
	"users", "user_roles", "refresh_tokens", "profiles",
	"applications", "messages", "site_settings", "page_views",
}

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestMigrationsSource(t *testing.T) {
	src, err := Migrations()
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil || first != 1 {
		t.Fatalf("first version = %d, %v", first, err)
	}
	if _, err := src.Next(first); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("unexpected migration after %d: %v", first, err)
	}

	r, ident, err := src.ReadUp(first)
	if err != nil {
		t.Fatal(err)
	}
	if ident != "init" {
		t.Errorf("identifier = %q", ident)
	}
	up := readAll(t, r)

	r, _, err = src.ReadDown(first)
	if err != nil {
		t.Fatal(err)
	}
	down := readAll(t, r)

	for _, tbl := range tables {
		if !strings.Contains(up, "CREATE TABLE IF NOT EXISTS "+tbl+" (") {
			t.Errorf("up does not create %s", tbl)
		}
		if !strings.Contains(down, "DROP TABLE IF EXISTS "+tbl+";") {
			t.Errorf("down does not drop %s", tbl)
		}
	}
	if !strings.Contains(up, "INSERT IGNORE INTO site_settings") {
		t.Error("default settings row not seeded")
	}
}

func TestDSN(t *testing.T) {
	got := dsn("app", "", "db", "3306", "portal", "&multiStatements=true")
	want := "app@tcp(db:3306)/portal?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true"
	if got != want {
		t.Errorf("dsn = %q", got)
	}
	if got := dsn("app", "pw", "db", "3306", "portal", ""); !strings.HasPrefix(got, "app:pw@tcp(") {
		t.Errorf("dsn with password = %q", got)
	}
}
