// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
	"strings"
)

// ChangeSummary describes the result of comparing two AppConfigs.
type ChangeSummary struct {
	ChangedFields   []string // YAML paths of fields that changed
	RestartRequired bool     // True if any changed field is not hot reloadable
}

// Changed reports whether any field differs.
func (s ChangeSummary) Changed() bool {
	return len(s.ChangedFields) > 0
}

// hotReloadAllowlist names the fields the running daemon applies in place.
var hotReloadAllowlist = map[string]struct{}{
	"log.level":           {},
	"bridge.client_ttl":   {},
	"bridge.max_clients":  {},
	"bridge.client_rate":  {},
	"bridge.client_burst": {},
	"bridge.hairpin":      {},
}

// HotReloadable reports whether the field at path can change without a restart.
func HotReloadable(path string) bool {
	_, ok := hotReloadAllowlist[path]
	return ok
}

// Diff compares two configurations and returns a summary of changes.
func Diff(old, next AppConfig) ChangeSummary {
	summary := ChangeSummary{}
	summary.compareStruct("", reflect.ValueOf(old), reflect.ValueOf(next))
	return summary
}

func (s *ChangeSummary) compareStruct(prefix string, oldVal, nextVal reflect.Value) {
	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := yamlName(f)
		if name == "-" {
			continue
		}
		fieldPath := name
		if prefix != "" {
			fieldPath = prefix + "." + name
		}

		ov := oldVal.Field(i)
		nv := nextVal.Field(i)

		if ov.Kind() == reflect.Struct {
			s.compareStruct(fieldPath, ov, nv)
			continue
		}

		if !reflect.DeepEqual(ov.Interface(), nv.Interface()) {
			s.ChangedFields = append(s.ChangedFields, fieldPath)
			if !HotReloadable(fieldPath) {
				s.RestartRequired = true
			}
		}
	}
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}
