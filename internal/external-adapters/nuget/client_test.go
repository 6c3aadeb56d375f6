package nuget

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/external-adapters/fetch"
)

const sampleNuspec = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>Sample.Lib</id>
    <version>1.0.0</version>
    <license type="file">docs\LICENSE.txt</license>
    <repository type="git" url="https://github.com/example/sample" commit="abc123" />
  </metadata>
</package>`

func buildNupkg(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type nugetServer struct {
	*httptest.Server
	nupkg         []byte
	registrations int32
}

func newNugetServer(t *testing.T, nupkg []byte) *nugetServer {
	t.Helper()
	ns := &nugetServer{nupkg: nupkg}
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/index.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"version":"3.0.0","resources":[
			{"@id":"%[1]s/v3/registration5-semver1/","@type":"RegistrationsBaseUrl/3.6.0"},
			{"@id":"%[1]s/v3-flatcontainer/","@type":"PackageBaseAddress/3.0.0"}]}`, ns.URL)
	})
	mux.HandleFunc("/v3/registration5-semver1/sample.lib/index.json", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&ns.registrations, 1)
		fmt.Fprintf(w, `{"count":2,"items":[
			{"@id":"%[1]s/v3/registration5-semver1/sample.lib/page1.json","items":[
				{"catalogEntry":{"id":"Sample.Lib","version":"1.0.0","authors":"Alice, Bob",
					"description":"A sample","licenseExpression":"MIT","listed":true,
					"published":"2020-01-02T03:04:05+00:00","tags":["sample","lib"],
					"projectUrl":"https://example.com",
					"dependencyGroups":[
						{"targetFramework":".NETStandard2.0","dependencies":[{"id":"Other.Lib","range":"[2.0.0, )"}]},
						{"targetFramework":"net6.0-windows7.0"},
						{}
					]}}
			]},
			{"@id":"%[1]s/v3/registration5-semver1/sample.lib/page2.json"}
		]}`, ns.URL)
	})
	mux.HandleFunc("/v3/registration5-semver1/sample.lib/page2.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"items":[
			{"catalogEntry":{"id":"Sample.Lib","version":"1.1.0-beta","authors":["Carol"],
				"published":"1900-01-01T00:00:00+00:00"}},
			{"catalogEntry":{"version":"9.9.9"}}
		]}`)
	})
	mux.HandleFunc("/v3/registration5-semver1/broken/index.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/v3-flatcontainer/sample.lib/1.0.0/sample.lib.1.0.0.nupkg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(ns.nupkg)
	})
	ns.Server = httptest.NewServer(mux)
	t.Cleanup(ns.Close)
	return ns
}

func newTestClient(ns *nugetServer) *Client {
	c := NewClient(ns.URL+"/v3/index.json", fetch.NewFetcher(fetch.WithMaxRetries(0)), nil)
	c.SetRetryMax(0)
	return c
}

func TestListVersions(t *testing.T) {
	ns := newNugetServer(t, nil)
	c := newTestClient(ns)

	metas, err := c.ListVersions(context.Background(), "Sample.Lib")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d versions, want 2 (entry without id skipped)", len(metas))
	}

	first := metas[0]
	if first.Identity != (entities.PackageIdentity{ID: "Sample.Lib", Version: "1.0.0"}) {
		t.Errorf("identity = %v", first.Identity)
	}
	if !first.Listed || first.Published.Year() != 2020 {
		t.Errorf("listed=%v published=%v", first.Listed, first.Published)
	}
	if strings.Join(first.Authors, "|") != "Alice|Bob" {
		t.Errorf("authors = %v", first.Authors)
	}
	if strings.Join(first.Tags, "|") != "sample|lib" {
		t.Errorf("tags = %v", first.Tags)
	}
	if first.License != "MIT" || first.ProjectURL != "https://example.com" {
		t.Errorf("license=%q project=%q", first.License, first.ProjectURL)
	}
	if len(first.DependencyGroups) != 2 {
		t.Fatalf("dependency groups = %+v", first.DependencyGroups)
	}
	if got := first.DependencyGroups[0].TargetFramework.String(); got != "netstandard2.0" {
		t.Errorf("group framework = %q", got)
	}
	if deps := first.DependencyGroups[0].Dependencies; len(deps) != 1 || deps[0].ID != "Other.Lib" || deps[0].Range != "[2.0.0, )" {
		t.Errorf("dependencies = %+v", deps)
	}
	if !first.DependencyGroups[1].TargetFramework.IsAny() {
		t.Errorf("group without framework should be any, got %v", first.DependencyGroups[1].TargetFramework)
	}

	second := metas[1]
	if second.Listed {
		t.Error("1900 publish date marks a version unlisted")
	}
	if !second.Published.IsZero() {
		t.Errorf("published = %v, want zero", second.Published)
	}
	if len(second.Authors) != 1 || second.Authors[0] != "Carol" {
		t.Errorf("authors = %v", second.Authors)
	}
}

func TestListVersionsNotFound(t *testing.T) {
	ns := newNugetServer(t, nil)
	c := newTestClient(ns)

	_, err := c.ListVersions(context.Background(), "Missing.Package")
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListVersionsUpstreamDown(t *testing.T) {
	ns := newNugetServer(t, nil)
	c := newTestClient(ns)

	_, err := c.ListVersions(context.Background(), "Broken")
	if !errors.Is(err, entities.ErrUpstreamDown) {
		t.Fatalf("expected ErrUpstreamDown, got %v", err)
	}
}

func TestServiceIndexMissingResources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"resources":[{"@id":"x","@type":"SearchQueryService"}]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, fetch.NewFetcher(), nil)
	if _, err := c.ListVersions(context.Background(), "Sample.Lib"); err == nil {
		t.Fatal("expected error for incomplete service index")
	}
}

func TestServiceIndexPrefersSemVer2Registrations(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/index.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"version":"3.0.0","resources":[
			{"@id":"%[1]s/v3/registration5-semver1/","@type":"RegistrationsBaseUrl"},
			{"@id":"%[1]s/v3/registration5-gz/","@type":"RegistrationsBaseUrl/3.4.0"},
			{"@id":"%[1]s/v3/registration5-gz-semver2/","@type":"RegistrationsBaseUrl/3.6.0"},
			{"@id":"%[1]s/v3-flatcontainer/","@type":"PackageBaseAddress/3.0.0"}]}`, server.URL)
	})
	mux.HandleFunc("/v3/registration5-gz-semver2/sample.lib/index.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"items":[{"items":[
			{"catalogEntry":{"id":"Sample.Lib","version":"1.0.0"}},
			{"catalogEntry":{"id":"Sample.Lib","version":"2.0.0-rc.1+build.5"}}
		]}]}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL+"/v3/index.json", fetch.NewFetcher(fetch.WithMaxRetries(0)), nil)
	c.SetRetryMax(0)
	metas, err := c.ListVersions(context.Background(), "Sample.Lib")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(metas) != 2 || metas[1].Identity.Version != "2.0.0-rc.1+build.5" {
		t.Errorf("versions = %+v", metas)
	}
}

func TestRegistrationRank(t *testing.T) {
	order := []string{
		"RegistrationsBaseUrl/3.6.0",
		"RegistrationsBaseUrl/Versioned",
		"RegistrationsBaseUrl/3.4.0",
		"RegistrationsBaseUrl",
		"RegistrationsBaseUrl/3.0.0-beta",
	}
	for i := 1; i < len(order); i++ {
		if registrationRank(order[i-1]) >= registrationRank(order[i]) {
			t.Errorf("%s should rank before %s", order[i-1], order[i])
		}
	}
}

func TestDownload(t *testing.T) {
	nupkg := buildNupkg(t, map[string]string{
		"Sample.Lib.nuspec":                      sampleNuspec,
		"lib/netstandard2.0/Sample.Lib.dll":      "managed",
		"runtimes/win-x64/native/sample%2Bn.dll": "native",
		"docs/LICENSE.txt":                       "MIT License text",
		"[Content_Types].xml":                    "<Types/>",
		"_rels/.rels":                            "<Relationships/>",
		"package/services/metadata/core-properties/x.psmdcp": "<x/>",
	})
	ns := newNugetServer(t, nupkg)
	c := newTestClient(ns)

	content, err := c.Download(context.Background(), entities.PackageIdentity{ID: "Sample.Lib", Version: "1.0.0.0"})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer func() { _ = content.Close() }()

	want := []string{
		"Sample.Lib.nuspec",
		"docs/LICENSE.txt",
		"lib/netstandard2.0/Sample.Lib.dll",
		"runtimes/win-x64/native/sample+n.dll",
	}
	if got := content.Files(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Files() = %v, want %v", got, want)
	}

	manifest := content.Manifest()
	if manifest.LicenseFile != "docs/LICENSE.txt" {
		t.Errorf("LicenseFile = %q", manifest.LicenseFile)
	}
	if manifest.Repository == nil || manifest.Repository.URL != "https://github.com/example/sample" || manifest.Repository.Commit != "abc123" {
		t.Errorf("Repository = %+v", manifest.Repository)
	}

	rc, err := content.Open("lib/netstandard2.0/Sample.Lib.dll")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "managed" {
		t.Errorf("content = %q", data)
	}

	if _, err := content.Open("missing.dll"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDownloadNotFound(t *testing.T) {
	ns := newNugetServer(t, nil)
	c := newTestClient(ns)

	_, err := c.Download(context.Background(), entities.PackageIdentity{ID: "Sample.Lib", Version: "2.0.0"})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenPackageInvalid(t *testing.T) {
	if _, err := OpenPackage([]byte("not a zip")); err == nil {
		t.Fatal("expected error")
	}
}

func TestServiceIndexCached(t *testing.T) {
	var calls int32
	inner := newNugetServer(t, nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v3/index.json" {
			atomic.AddInt32(&calls, 1)
		}
		http.Redirect(w, r, inner.URL+r.URL.Path, http.StatusTemporaryRedirect)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/v3/index.json", fetch.NewFetcher(), nil)
	for i := 0; i < 2; i++ {
		if _, err := c.ListVersions(context.Background(), "Sample.Lib"); err != nil {
			t.Fatal(err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("service index requested %d times, want 1", n)
	}
	if n := atomic.LoadInt32(&inner.registrations); n != 2 {
		t.Errorf("registrations requested %d times, want 2", n)
	}
}
