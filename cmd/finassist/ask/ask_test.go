package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finassist/finassist/pkg/advisor"
	"github.com/finassist/finassist/pkg/config"
	"github.com/finassist/finassist/pkg/llm"
)

var _ = Describe("Ask Command", func() {
	var (
		mu       sync.Mutex
		received []llm.ChatRequest
		reply    string
		status   int
		srv      *httptest.Server
		out      *bytes.Buffer
		errOut   *bytes.Buffer
	)

	BeforeEach(func() {
		received = nil
		reply = "Keep three to six months of expenses."
		status = http.StatusOK

		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req llm.ChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)

			mu.Lock()
			received = append(received, req)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				_ = json.NewEncoder(w).Encode(llm.ErrorResponse{Error: advisor.MessageBusy})
				return
			}
			history := append(append([]llm.Message{}, req.History...),
				llm.UserMessage(req.Message), llm.AssistantMessage(reply))
			_ = json.NewEncoder(w).Encode(llm.ChatResponse{Content: reply, History: history})
		}))

		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}
	})

	AfterEach(func() {
		srv.Close()
	})

	execute := func(args ...string) error {
		cmd := NewAskCmd(config.New())
		cmd.SetOut(out)
		cmd.SetErr(errOut)
		cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
		return cmd.ExecuteContext(context.Background())
	}

	It("prints the reply", func() {
		Expect(execute("How big", "should my emergency fund be?")).To(Succeed())

		Expect(out.String()).To(Equal("Keep three to six months of expenses.\n"))
		Expect(received).To(HaveLen(1))
		Expect(received[0].Message).To(Equal("How big should my emergency fund be?"))
		Expect(received[0].History).To(BeEmpty())
	})

	It("continues and saves the conversation in the history file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "chat.json")

		Expect(execute("--history", path, "first")).To(Succeed())
		reply = "second answer"
		Expect(execute("--history", path, "second")).To(Succeed())

		Expect(received).To(HaveLen(2))
		Expect(received[1].History).To(Equal([]llm.Message{
			llm.UserMessage("first"),
			llm.AssistantMessage("Keep three to six months of expenses."),
		}))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		var saved []llm.Message
		Expect(json.Unmarshal(data, &saved)).To(Succeed())
		Expect(saved).To(HaveLen(4))
		Expect(saved[3]).To(Equal(llm.AssistantMessage("second answer")))
	})

	It("asks about a document with the templated prompt", func() {
		Expect(execute("--document", "/tmp/statement.pdf")).To(Succeed())

		Expect(received[0].Message).To(HavePrefix("Analyze this financial document: statement.pdf."))
		Expect(errOut.String()).To(Equal("Uploaded financial document: statement.pdf (application/pdf)\n"))
	})

	It("rejects unsupported documents without calling the proxy", func() {
		Expect(execute("--document", "budget.xlsx")).To(MatchError(ContainSubstring("unsupported document")))
		Expect(received).To(BeEmpty())
	})

	It("requires a question", func() {
		Expect(execute()).To(MatchError(ContainSubstring("question")))
		Expect(received).To(BeEmpty())
	})

	It("shows the empty-reply text when the proxy returns no content", func() {
		reply = ""
		Expect(execute("hello")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("couldn't generate a response"))
	})

	It("surfaces proxy errors", func() {
		status = http.StatusTooManyRequests
		Expect(execute("hello")).To(MatchError(ContainSubstring(advisor.MessageBusy)))
	})
})
