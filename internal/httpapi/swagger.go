package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) swaggerUI(w http.ResponseWriter, r *http.Request) {
	const page = `<!doctype html>
<html lang="es">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Jardin API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) swaggerSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPISpec(requestBaseURL(r)))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.Split(forwarded, ",")[0]
		scheme = strings.TrimSpace(scheme)
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost:8787"
	}
	return scheme + "://" + host
}

func ref(schema string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + schema}
}

func jsonBody(schema map[string]any) map[string]any {
	return map[string]any{
		"application/json": map[string]any{"schema": schema},
	}
}

func operation(id string, summary string, ok map[string]any, errs map[string]string) map[string]any {
	responses := map[string]any{
		"200": map[string]any{"description": "OK", "content": jsonBody(ok)},
	}
	for code, desc := range errs {
		responses[code] = map[string]any{"description": desc, "content": jsonBody(ref("Error"))}
	}
	return map[string]any{
		"summary":     summary,
		"operationId": id,
		"responses":   responses,
	}
}

func withBody(op map[string]any, contentType string, schema map[string]any) map[string]any {
	op["requestBody"] = map[string]any{
		"required": true,
		"content": map[string]any{
			contentType: map[string]any{"schema": schema},
		},
	}
	return op
}

func openAPISpec(serverURL string) map[string]any {
	str := map[string]any{"type": "string"}
	integer := map[string]any{"type": "integer"}
	boolean := map[string]any{"type": "boolean"}
	arrayOf := func(items map[string]any) map[string]any {
		return map[string]any{"type": "array", "items": items}
	}
	object := func(props map[string]any) map[string]any {
		return map[string]any{"type": "object", "properties": props}
	}
	unavailable := map[string]string{"503": "Catalog unavailable", "500": "Internal error"}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "Jardin API",
			"description": "Plant-spotting progress, captures and offline queue",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL},
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": operation("healthz", "Health check", object(map[string]any{"status": str, "online": boolean}), nil),
			},
			"/api/v1/session": map[string]any{
				"post": withBody(
					operation("signIn", "Sign in, restore progress and reconcile the offline queue", ref("SignInResponse"), map[string]string{"400": "Bad request", "503": "Catalog unavailable"}),
					"application/json", ref("SignInRequest"),
				),
				"delete": operation("signOut", "Drop the current session", object(map[string]any{"status": str}), nil),
			},
			"/api/v1/progress": map[string]any{
				"get": operation("progress", "Level, counters and visible plant cards", ref("ProgressView"), unavailable),
			},
			"/api/v1/catalog": map[string]any{
				"get": operation("catalog", "Plants unlocked at the current level", object(map[string]any{
					"level":  integer,
					"plants": arrayOf(ref("PlantCard")),
				}), unavailable),
			},
			"/api/v1/capture": map[string]any{
				"post": withBody(
					operation("capture", "Submit a photo for a plant, or queue it while offline", ref("CaptureOutcome"), map[string]string{
						"400": "Bad request",
						"502": "Classification endpoint failed",
						"500": "Capture could not be saved",
					}),
					"multipart/form-data", object(map[string]any{
						"item_id": str,
						"image":   map[string]any{"type": "string", "format": "binary"},
					}),
				),
			},
			"/api/v1/sync": map[string]any{
				"post": operation("sync", "Run one reconciliation pass", ref("ReconcileReport"), map[string]string{"500": "Internal error"}),
			},
			"/api/v1/pending": map[string]any{
				"get": operation("pending", "List queued captures", object(map[string]any{
					"count": integer,
					"items": arrayOf(object(map[string]any{"item_id": str, "photo_bytes": integer})),
				}), map[string]string{"500": "Internal error"}),
			},
			"/api/v1/pending/{itemID}": map[string]any{
				"delete": map[string]any{
					"summary":     "Discard a stuck queued capture",
					"operationId": "discardPending",
					"parameters": []map[string]any{
						{"name": "itemID", "in": "path", "required": true, "schema": str},
					},
					"responses": map[string]any{
						"200": map[string]any{"description": "OK", "content": jsonBody(object(map[string]any{"removed": integer}))},
						"404": map[string]any{"description": "Not queued", "content": jsonBody(ref("Error"))},
					},
				},
			},
			"/api/v1/connectivity": map[string]any{
				"put": withBody(
					operation("connectivity", "Report the online state; going online triggers reconciliation", object(map[string]any{"online": boolean, "changed": boolean}), map[string]string{"400": "Bad request"}),
					"application/json", object(map[string]any{"online": boolean}),
				),
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": object(map[string]any{"error": str}),
				"SignInRequest": object(map[string]any{
					"user_id": str,
					"email":   str,
				}),
				"SignInResponse": object(map[string]any{
					"progress":  ref("ProgressView"),
					"reconcile": ref("ReconcileReport"),
				}),
				"PlantCard": object(map[string]any{
					"id":          str,
					"difficulty":  integer,
					"description": str,
					"location":    str,
					"photos":      arrayOf(str),
					"status":      map[string]any{"type": "string", "enum": []string{"confirmed", "queued", "waiting"}},
				}),
				"ProgressView": object(map[string]any{
					"user_id":       str,
					"level":         integer,
					"title":         str,
					"confirmed":     integer,
					"visible":       integer,
					"percent":       integer,
					"total_seen":    integer,
					"next_level_at": integer,
					"cards":         arrayOf(ref("PlantCard")),
					"pending_count": integer,
					"online":        boolean,
					"generated_at":  map[string]any{"type": "string", "format": "date-time"},
				}),
				"Milestone": object(map[string]any{
					"level":   integer,
					"title":   str,
					"message": str,
				}),
				"ReconcileReport": object(map[string]any{
					"attempted":  integer,
					"confirmed":  arrayOf(str),
					"retained":   arrayOf(str),
					"milestones": arrayOf(ref("Milestone")),
				}),
				"CaptureOutcome": object(map[string]any{
					"item_id": str,
					"state": map[string]any{"type": "string", "enum": []string{
						"idle", "awaiting_file", "offline_queued", "submitting", "confirmed", "rejected", "error",
					}},
					"message": str,
					"classification": object(map[string]any{
						"predicted_label": str,
						"confidence":      map[string]any{"type": "number"},
						"match":           boolean,
					}),
					"milestones": arrayOf(ref("Milestone")),
				}),
			},
		},
	}
}
