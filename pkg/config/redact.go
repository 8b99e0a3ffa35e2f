/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"encoding/json"
	"reflect"
	"strings"
)

const redacted = "[redacted]"

// Redact renders cfg as JSON with every `sensitive:"true"` field replaced by
// a placeholder. Empty sensitive fields stay empty.
func Redact(cfg interface{}) ([]byte, error) {
	return json.Marshal(redactValue(reflect.ValueOf(cfg)))
}

func redactValue(v reflect.Value) interface{} {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		if _, ok := v.Interface().(json.Marshaler); ok {
			return v.Interface()
		}

		return redactStruct(v)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}

		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = redactValue(v.Index(i))
		}

		return out
	default:
		if !v.IsValid() {
			return nil
		}

		return v.Interface()
	}
}

func redactStruct(v reflect.Value) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}

		if name == "" {
			name = field.Name
		}

		fv := v.Field(i)

		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}

		if field.Tag.Get("sensitive") == "true" {
			if !fv.IsZero() {
				out[name] = redacted
			} else {
				out[name] = fv.Interface()
			}

			continue
		}

		out[name] = redactValue(fv)
	}

	return out
}
