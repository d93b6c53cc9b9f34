package mcpcmder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finassist/finassist/pkg/config"
	"github.com/finassist/finassist/pkg/mcpserver"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "llama-3.1-8b-instant",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Max out the employer match."}, "finish_reason": "stop"}]
}`

var _ = Describe("MCP Command", func() {
	var (
		mu       sync.Mutex
		models   []string
		upstream *httptest.Server
		tmpDir   string
	)

	BeforeEach(func() {
		models = nil
		tmpDir = GinkgoT().TempDir()

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Model string `json:"model"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			models = append(models, req.Model)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(completionBody))
		}))

		GinkgoT().Setenv(config.APIKeyEnv, "gsk-test")
		GinkgoT().Setenv("FINASSIST_UPSTREAM_URL", upstream.URL)
	})

	AfterEach(func() {
		upstream.Close()
	})

	It("serves the advisor with the profile named by --profile", func(ctx SpecContext) {
		profile := filepath.Join(tmpDir, "advisor.toml")
		Expect(os.WriteFile(profile, []byte(`model = "llama-3.1-8b-instant"`+"\n"), 0o600)).To(Succeed())

		clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
		cmd := newMCPCmd(&mcpCommander{v: config.New(), version: "test", transport: serverTransport})
		cmd.SetArgs([]string{"--profile", profile})

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		done := make(chan error, 1)
		go func() {
			done <- cmd.ExecuteContext(runCtx)
		}()

		client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "test"}, nil)
		session, err := client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())

		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      mcpserver.ToolName,
			Arguments: map[string]any{"message": "How much should I put in my 401(k)?"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		mu.Lock()
		Expect(models).To(Equal([]string{"llama-3.1-8b-instant"}))
		mu.Unlock()

		_ = session.Close()
		cancel()
		Eventually(done, "5s").Should(Receive())
	})

	It("fails before serving when the profile is broken", func() {
		profile := filepath.Join(tmpDir, "advisor.toml")
		Expect(os.WriteFile(profile, []byte("temperature = 9\n"), 0o600)).To(Succeed())

		_, serverTransport := sdkmcp.NewInMemoryTransports()
		cmd := newMCPCmd(&mcpCommander{v: config.New(), version: "test", transport: serverTransport})
		cmd.SetArgs([]string{"--profile", profile})
		cmd.SilenceUsage = true

		Expect(cmd.ExecuteContext(context.Background())).To(HaveOccurred())
	})
})
