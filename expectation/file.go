// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package expectation

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

// Bundle is the YAML representation of a list of expectations
//
//	language: go
//	wildcard_match: true
//	expectations:
//	  - service: web
//	    operation: web.request
//	    resource: GET /users
//	    type: web
//	    tags:
//	      http.method: GET
//	    present_tags: [http.url]
//	    absent_tags: [error.msg]
//
// With wildcard_match, the empty service, operation and type of an entry
// match any span value instead of only empty ones.
type Bundle struct {
	Language      string        `yaml:"language"`
	WildcardMatch bool          `yaml:"wildcard_match"`
	Expectations  []BundleEntry `yaml:"expectations"`
}

// BundleEntry is the YAML representation of one expectation
type BundleEntry struct {
	Service     string            `yaml:"service"`
	Operation   string            `yaml:"operation"`
	Resource    string            `yaml:"resource"`
	Type        string            `yaml:"type"`
	Tags        map[string]string `yaml:"tags"`
	RootTags    map[string]string `yaml:"root_tags"`
	PresentTags []string          `yaml:"present_tags"`
	AbsentTags  []string          `yaml:"absent_tags"`
}

// LoadFile reads a YAML bundle of expectations
func LoadFile(path string, options ...Option) ([]*SpanExpectation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read expectations")
	}
	expectations, err := Parse(data, options...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load expectations from %s", path)
	}
	return expectations, nil
}

// Parse builds the expectations of a YAML bundle. The bundle language, when
// set, takes precedence over a runtime given in options.
func Parse(data []byte, options ...Option) ([]*SpanExpectation, error) {
	var bundle Bundle
	if err := yaml.UnmarshalStrict(data, &bundle); err != nil {
		return nil, err
	}
	if bundle.Language != "" {
		options = append(options, WithRuntimeMetadata(StaticRuntime(bundle.Language)))
	}
	if bundle.WildcardMatch {
		options = append(options, WithWildcardMatch())
	}

	expectations := make([]*SpanExpectation, 0, len(bundle.Expectations))
	for i, entry := range bundle.Expectations {
		if entry.Service == "" && entry.Operation == "" && entry.Type == "" {
			return nil, errors.Errorf("expectation #%d matches every span: set at least one of service, operation or type", i)
		}
		e := NewSpanExpectation(entry.Service, entry.Operation, entry.Resource, entry.Type, options...)
		for _, key := range sortedKeys(entry.Tags) {
			value := entry.Tags[key]
			e.RegisterTagExpectation(key, &value, Always)
		}
		for _, key := range sortedKeys(entry.RootTags) {
			value := entry.RootTags[key]
			e.RegisterTagExpectation(key, &value, IsRoot)
		}
		for _, key := range entry.PresentTags {
			e.TagShouldExist(key, Always)
		}
		for _, key := range entry.AbsentTags {
			e.TagShouldNotExist(key, Always)
		}
		expectations = append(expectations, e)
	}
	return expectations, nil
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
