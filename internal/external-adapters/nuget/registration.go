package nuget

import (
	"errors"
	"strings"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/tidwall/gjson"
)

// unlistedPublished is the publish date nuget.org assigns to unlisted versions.
var unlistedPublished = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

func parseCatalogEntry(entry gjson.Result) (*entities.PackageMetadata, error) {
	if !entry.IsObject() {
		return nil, errors.New("registration leaf has no inline catalogEntry")
	}

	id := entry.Get("id").String()
	version := entry.Get("version").String()
	if id == "" || version == "" {
		return nil, errors.New("catalogEntry lacks id or version")
	}

	meta := &entities.PackageMetadata{
		Identity:    entities.PackageIdentity{ID: id, Version: version},
		Listed:      true,
		Description: entry.Get("description").String(),
		Authors:     stringList(entry.Get("authors")),
		Owners:      stringList(entry.Get("owners")),
		Tags:        stringList(entry.Get("tags")),
		License:     entry.Get("licenseExpression").String(),
		LicenseURL:  entry.Get("licenseUrl").String(),
		ProjectURL:  entry.Get("projectUrl").String(),
	}

	if listed := entry.Get("listed"); listed.Exists() {
		meta.Listed = listed.Bool()
	}
	if published := entry.Get("published").String(); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			if t.Year() <= unlistedPublished.Year() {
				meta.Listed = false
			} else {
				meta.Published = t
			}
		}
	}

	for _, group := range entry.Get("dependencyGroups").Array() {
		fw, err := services.ParseFramework(group.Get("targetFramework").String())
		if err != nil {
			// platform specific groups (net6.0-windows) never match a Unity target
			continue
		}
		dg := entities.DependencyGroup{TargetFramework: fw}
		for _, dep := range group.Get("dependencies").Array() {
			depID := dep.Get("id").String()
			if depID == "" {
				continue
			}
			dg.Dependencies = append(dg.Dependencies, entities.Dependency{
				ID:    depID,
				Range: dep.Get("range").String(),
			})
		}
		meta.DependencyGroups = append(meta.DependencyGroups, dg)
	}

	return meta, nil
}

// stringList accepts both the array form and the comma separated string form.
func stringList(r gjson.Result) []string {
	var out []string
	add := func(s string) {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if r.IsArray() {
		for _, item := range r.Array() {
			add(item.String())
		}
		return out
	}
	if r.Exists() {
		add(r.String())
	}
	return out
}
