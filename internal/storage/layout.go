/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"photolayout/internal/domain"
)

//go:embed layout.schema.json
var layoutSchemaJSON []byte

var compileLayoutSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(layoutSchemaJSON))
})

// LayoutSchema returns the embedded JSON schema for layout documents.
func LayoutSchema() []byte { return append([]byte(nil), layoutSchemaJSON...) }

// ValidateLayout checks data against the layout schema. Violations are
// returned as a *domain.ValidationError, one message per schema error.
func ValidateLayout(data []byte) error {
	schema, err := compileLayoutSchema()
	if err != nil {
		return fmt.Errorf("compile layout schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &domain.ValidationError{Messages: []string{"layout is not valid JSON: " + err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	ve := &domain.ValidationError{}
	for _, e := range res.Errors() {
		ve.Add("%s", e.String())
	}
	return ve
}

// UnmarshalLayout validates and decodes a layout document. The result is
// normalized so page numbers and card ids are positional.
func UnmarshalLayout(data []byte) (*domain.Session, error) {
	if err := ValidateLayout(data); err != nil {
		return nil, err
	}
	s := domain.NewSession()
	s.Pages = nil
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	s.Normalize()
	return s, nil
}

// MarshalLayout encodes s as indented JSON. Preview images and the
// session history are not persisted.
func MarshalLayout(s *domain.Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("marshal layout: nil session")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal layout: %w", err)
	}
	return append(data, '\n'), nil
}
