// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package expectation

// DefaultLanguage is the language expected on root spans by default
const DefaultLanguage = "go"

// RuntimeMetadata describes the runtime of the instrumented process
type RuntimeMetadata interface {
	Language() string
}

// StaticRuntime is a RuntimeMetadata reporting a fixed language
type StaticRuntime string

// Language implements RuntimeMetadata
func (r StaticRuntime) Language() string {
	return string(r)
}
