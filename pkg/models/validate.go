/*
 * Copyright (c) 2026, Beacon HQ (https://github.com/beaconhq).
 *
 * Beacon HQ licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// statusUpdateSchema constrains what publishers may write through the REST
// API. Stream consumers perform no validation; unknown values that reach the
// store through other paths are passed through to subscribers as-is.
var statusUpdateSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"id", "status", "progress", "timestamp"},
	"properties": map[string]interface{}{
		"id": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"status": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{
				string(StatusQueued),
				string(StatusProcessing),
				string(StatusCompleted),
				string(StatusFailed),
				string(StatusCancelled),
			},
		},
		"progress": map[string]interface{}{
			"type":    "integer",
			"minimum": 0,
			"maximum": 100,
		},
		"timestamp": map[string]interface{}{
			"type":    "integer",
			"minimum": 1,
		},
		"createdAt":   map[string]interface{}{"type": "integer"},
		"updatedAt":   map[string]interface{}{"type": "integer"},
		"completedAt": map[string]interface{}{"type": "integer"},
		"error":       map[string]interface{}{"type": "string"},
		"retryCount":  map[string]interface{}{"type": "integer", "minimum": 0},
	},
}

// ValidateStatusUpdate validates a publisher-submitted status update against
// the write-path schema. It returns a single error naming every violated
// field.
func ValidateStatusUpdate(u *StatusUpdate) error {
	schemaLoader := gojsonschema.NewGoLoader(statusUpdateSchema)
	docLoader := gojsonschema.NewGoLoader(u)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("failed to validate status update: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, validationErr := range result.Errors() {
		field := validationErr.Field()
		if field == "(root)" {
			msgs = append(msgs, validationErr.Description())
			continue
		}
		field = strings.TrimPrefix(field, "(root).")
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, validationErr.Description()))
	}
	return fmt.Errorf("invalid status update: %s", strings.Join(msgs, "; "))
}
