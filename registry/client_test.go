package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/discovery"
	"github.com/BaSui01/agentscout/internal/ctxkeys"
)

// testConfig returns a client config suitable for httptest servers: no
// retries, no retry delay.
func testConfig(baseURL string) *ClientConfig {
	config := DefaultClientConfig(baseURL)
	config.RetryCount = 0
	config.RetryDelay = time.Millisecond
	return config
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
}

func TestNewClient(t *testing.T) {
	t.Run("with nil config uses defaults", func(t *testing.T) {
		client := NewClient(nil, nil)
		assert.NotNil(t, client)
		assert.Equal(t, 30*time.Second, client.config.Timeout)
		assert.Equal(t, 3, client.config.RetryCount)
		assert.Equal(t, defaultBaseURL, client.BaseURL())
	})

	t.Run("with custom config", func(t *testing.T) {
		config := &ClientConfig{
			BaseURL:    "https://registry.internal/",
			Timeout:    10 * time.Second,
			RetryCount: 5,
			RetryDelay: 2 * time.Second,
		}
		client := NewClient(config, zap.NewNop())
		assert.NotNil(t, client)
		assert.Equal(t, "https://registry.internal", client.BaseURL())
		assert.Equal(t, 5, client.config.RetryCount)
	})
}

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig("")
	assert.Equal(t, defaultBaseURL, config.BaseURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 3, config.RetryCount)
	assert.Equal(t, 1*time.Second, config.RetryDelay)
	assert.Equal(t, 20.0, config.RateLimit)
	assert.Equal(t, 40, config.RateBurst)

	trimmed := DefaultClientConfig("http://registry.local/")
	assert.Equal(t, "http://registry.local", trimmed.BaseURL)
}

func TestClient_SearchAgents(t *testing.T) {
	t.Run("server-side search", func(t *testing.T) {
		agents := []discovery.AgentRecord{
			{AgentID: "translator-fr", Capabilities: []string{"translate"}},
			{AgentID: "translator-de", Capabilities: []string{"translate"}},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "document translation", r.URL.Query().Get("q"))
			assert.Equal(t, "translate,summarize", r.URL.Query().Get("capabilities"))
			assert.Equal(t, "production", r.URL.Query().Get("tags"))
			writeJSON(t, w, agents)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		result, err := client.SearchAgents(context.Background(), discovery.SearchQuery{
			Query:        "document translation",
			Capabilities: []string{"translate", "summarize"},
			Tags:         []string{"production"},
		})

		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "translator-fr", result[0].AgentID)
	})

	t.Run("envelope response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"agents": []discovery.AgentRecord{{AgentID: "a-1"}},
			})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		result, err := client.SearchAgents(context.Background(), discovery.SearchQuery{Query: "x"})

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "a-1", result[0].AgentID)
	})

	t.Run("falls back to local filtering when search is missing", func(t *testing.T) {
		listing := []discovery.AgentRecord{
			{AgentID: "translator-fr", Description: "Translates documents between languages"},
			{AgentID: "scraper-1", Description: "Web scraping and crawling"},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				w.WriteHeader(http.StatusNotFound)
			case "/list":
				writeJSON(t, w, listing)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		result, err := client.SearchAgents(context.Background(), discovery.SearchQuery{Query: "TRANSLAT"})

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "translator-fr", result[0].AgentID)
	})

	t.Run("local capability filter is an exact overlap", func(t *testing.T) {
		listing := []discovery.AgentRecord{
			{AgentID: "a-lower", Capabilities: []string{"translate", "summarize"}},
			{AgentID: "a-upper", Capabilities: []string{"Translate"}},
			{AgentID: "a-other", Capabilities: []string{"scrape"}},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				w.WriteHeader(http.StatusServiceUnavailable)
			case "/list":
				writeJSON(t, w, listing)
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		result, err := client.SearchAgents(context.Background(), discovery.SearchQuery{
			Capabilities: []string{"translate"},
		})

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "a-lower", result[0].AgentID)
	})

	t.Run("local tag filter", func(t *testing.T) {
		listing := []discovery.AgentRecord{
			{AgentID: "tagged", Tags: []string{"production", "eu"}},
			{AgentID: "untagged"},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				w.WriteHeader(http.StatusNotFound)
			case "/list":
				writeJSON(t, w, listing)
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		result, err := client.SearchAgents(context.Background(), discovery.SearchQuery{
			Tags: []string{"eu"},
		})

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "tagged", result[0].AgentID)
	})
}

func TestClient_ListAgents(t *testing.T) {
	t.Run("successful listing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/list", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(t, w, []discovery.AgentRecord{{AgentID: "a-1"}, {AgentID: "a-2"}})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		agents, err := client.ListAgents(context.Background())

		require.NoError(t, err)
		assert.Len(t, agents, 2)
	})

	t.Run("malformed last_seen decodes to a zero timestamp", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"agent_id":"a-1","last_seen":"not-a-date","status":"online"}]`))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		agents, err := client.ListAgents(context.Background())

		require.NoError(t, err)
		require.Len(t, agents, 1)
		require.NotNil(t, agents[0].LastSeen)
		assert.True(t, agents[0].LastSeen.IsZero())
		assert.Equal(t, discovery.AgentStatusOnline, agents[0].Status)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		_, err := client.ListAgents(context.Background())

		assert.ErrorIs(t, err, ErrRegistryUnavailable)
	})
}

func TestClient_ListClients(t *testing.T) {
	t.Run("clients endpoint present", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/clients", r.URL.Path)
			writeJSON(t, w, []discovery.AgentRecord{{AgentID: "c-1"}})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		clients, err := client.ListClients(context.Background())

		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "c-1", clients[0].AgentID)
	})

	t.Run("falls back to list endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/clients":
				w.WriteHeader(http.StatusNotFound)
			case "/list":
				writeJSON(t, w, []discovery.AgentRecord{{AgentID: "a-1"}})
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		clients, err := client.ListClients(context.Background())

		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "a-1", clients[0].AgentID)
	})
}

func TestClient_GetAgentMetadata(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/lookup/translator-fr", r.URL.Path)
			writeJSON(t, w, discovery.AgentRecord{
				AgentID:      "translator-fr",
				AgentURL:     "https://agents.example.com/translator-fr",
				Capabilities: []string{"translate"},
			})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		record, err := client.GetAgentMetadata(context.Background(), "translator-fr")

		require.NoError(t, err)
		assert.Equal(t, "translator-fr", record.AgentID)
		assert.Equal(t, []string{"translate"}, record.Capabilities)
	})

	t.Run("fills agent_id when lookup response omits it", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"agent_url":"https://a.example.com","description":"anonymous"}`))
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		record, err := client.GetAgentMetadata(context.Background(), "implicit-id")

		require.NoError(t, err)
		assert.Equal(t, "implicit-id", record.AgentID)
	})

	t.Run("404 maps to ErrAgentNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		_, err := client.GetAgentMetadata(context.Background(), "missing")

		assert.ErrorIs(t, err, ErrAgentNotFound)
	})

	t.Run("empty agent_id is rejected locally", func(t *testing.T) {
		client := NewClient(testConfig("http://registry.invalid"), zap.NewNop())
		_, err := client.GetAgentMetadata(context.Background(), "")

		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestClient_Register(t *testing.T) {
	t.Run("sends registration payload", func(t *testing.T) {
		var payload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/register", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		err := client.Register(context.Background(), RegisterRequest{
			AgentID:  "new-agent",
			AgentURL: "https://agents.example.com/new-agent",
		})

		require.NoError(t, err)
		assert.Equal(t, "new-agent", payload["agent_id"])
		assert.Equal(t, "https://agents.example.com/new-agent", payload["agent_url"])
		_, hasAPIURL := payload["api_url"]
		assert.False(t, hasAPIURL, "empty api_url should be omitted")
	})

	t.Run("missing fields rejected locally", func(t *testing.T) {
		client := NewClient(testConfig("http://registry.invalid"), zap.NewNop())

		err := client.Register(context.Background(), RegisterRequest{AgentURL: "https://a"})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		err = client.Register(context.Background(), RegisterRequest{AgentID: "a"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestClient_UpdateStatus(t *testing.T) {
	var payload StatusUpdate
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/agent-1/status", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	err := client.UpdateStatus(context.Background(), "agent-1", discovery.AgentStatusBusy)

	require.NoError(t, err)
	assert.Equal(t, "agent-1", payload.AgentID)
	assert.Equal(t, discovery.AgentStatusBusy, payload.Status)
	require.NotNil(t, payload.LastSeen)
	assert.WithinDuration(t, time.Now(), payload.LastSeen.Time, time.Minute)
}

func TestClient_Unregister(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/old-agent", r.URL.Path)
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	err := client.Unregister(context.Background(), "old-agent")

	require.NoError(t, err)
}

func TestClient_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		assert.ErrorIs(t, client.Health(context.Background()), ErrRegistryUnavailable)
	})
}

func TestClient_Stats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		writeJSON(t, w, Stats{TotalAgents: 128, ActiveAgents: 97, Version: "2.4.1"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	stats, err := client.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 128, stats.TotalAgents)
	assert.Equal(t, 97, stats.ActiveAgents)
	assert.Equal(t, "2.4.1", stats.Version)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, []discovery.AgentRecord{{AgentID: "a-1"}})
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 1
	client := NewClient(config, zap.NewNop())

	agents, err := client.ListAgents(context.Background())

	require.NoError(t, err)
	assert.Len(t, agents, 1)
	assert.Equal(t, 2, calls)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.RetryCount = 3
	client := NewClient(config, zap.NewNop())

	_, err := client.GetAgentMetadata(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrAgentNotFound)
	assert.Equal(t, 1, calls)
}

func TestClient_RequestID(t *testing.T) {
	t.Run("propagates the context request id", func(t *testing.T) {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("X-Request-ID")
			writeJSON(t, w, []discovery.AgentRecord{})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		ctx := ctxkeys.WithRequestID(context.Background(), "discovery-123")
		_, err := client.ListAgents(ctx)

		require.NoError(t, err)
		assert.Equal(t, "discovery-123", got)
	})

	t.Run("generates one when absent", func(t *testing.T) {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("X-Request-ID")
			writeJSON(t, w, []discovery.AgentRecord{})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), zap.NewNop())
		_, err := client.ListAgents(context.Background())

		require.NoError(t, err)
		assert.NotEmpty(t, got)
	})
}

func TestClient_ExtraHeaders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-API-Key")
		writeJSON(t, w, []discovery.AgentRecord{})
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.Headers["X-API-Key"] = "secret"
	client := NewClient(config, zap.NewNop())

	_, err := client.ListAgents(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(testConfig("http://registry.invalid"), zap.NewNop())
	_, err := client.ListAgents(ctx)

	assert.Error(t, err)
}
