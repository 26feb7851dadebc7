// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// descriptorSchema validates the top-level shape of the declarative
// descriptor (§6 "Configuration document") before it is decoded into
// Document. Per-class argument bags are validated separately, against
// each factory's own schema, when the registry builds the component
// (§9 "Dynamic argument forwarding") -- this schema only constrains the
// envelope every descriptor shares.
const descriptorSchema = `
{
  "type": "object",
  "properties": {
    "experiment": {
      "description": "Arbitrary mapping passed unaltered to enhancers and the sink header.",
      "type": "object"
    },
    "readers": {
      "description": "name -> reader configuration.",
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "class": { "type": "string" },
          "package_path": { "type": "string" },
          "args": { "type": "object" },
          "extra_buffers": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "reader_result_name": { "type": "string" },
                "name": { "type": "string" },
                "transformers": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "class": { "type": "string" },
                      "args": { "type": "object" }
                    },
                    "required": ["class"]
                  }
                }
              },
              "required": ["reader_result_name", "transformers"]
            }
          },
          "sync": {
            "type": "object",
            "properties": {
              "is_reference": { "type": "boolean" },
              "buffer_name": { "type": "string" },
              "filter": { "type": "string" },
              "pairing_key": { "type": "string" },
              "reader_name": { "type": "string" }
            }
          },
          "simulate_delay": { "type": "number" }
        },
        "required": ["class"]
      },
      "minProperties": 1
    },
    "trials": {
      "type": "object",
      "properties": {
        "start_buffer": { "type": "string" },
        "start_column": { "type": "integer" },
        "start_value": { "type": "number" },
        "wrt_buffer": { "type": "string" },
        "wrt_column": { "type": "integer" },
        "wrt_value": { "type": "number" },
        "enhancers": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "class": { "type": "string" },
              "args": { "type": "object" },
              "when": { "type": "string" }
            },
            "required": ["class"]
          }
        },
        "collecters": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "class": { "type": "string" },
              "args": { "type": "object" }
            },
            "required": ["class"]
          }
        }
      },
      "required": ["start_buffer", "start_value"]
    },
    "plotters": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "class": { "type": "string" },
          "package_path": { "type": "string" },
          "args": { "type": "object" }
        },
        "required": ["class"]
      }
    }
  },
  "required": ["readers", "trials"]
}`
