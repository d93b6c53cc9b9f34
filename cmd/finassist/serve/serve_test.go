package servecmder

import (
	"context"
	"net"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finassist/finassist/pkg/config"
)

var _ = Describe("Serve Command", func() {
	freeAddr := func() string {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := ln.Addr().String()
		Expect(ln.Close()).To(Succeed())
		return addr
	}

	It("serves until the context is cancelled", func() {
		addr := freeAddr()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cmd := NewServeCmd(config.New())
		cmd.SetArgs([]string{"--listen", addr})

		done := make(chan error, 1)
		go func() {
			done <- cmd.ExecuteContext(ctx)
		}()

		Eventually(func() int {
			resp, err := http.Get("http://" + addr + "/health")
			if err != nil {
				return 0
			}
			defer resp.Body.Close()
			return resp.StatusCode
		}).Should(Equal(http.StatusOK))

		cancel()
		Eventually(done, "15s").Should(Receive(BeNil()))
	})

	It("rejects an invalid rate limit", func() {
		cmd := NewServeCmd(config.New())
		cmd.SetArgs([]string{"--rate-limit-rps", "1", "--rate-limit-burst", "0"})

		Expect(cmd.ExecuteContext(context.Background())).To(MatchError(ContainSubstring("rate_limit.burst")))
	})

	It("rejects a missing profile", func() {
		cmd := NewServeCmd(config.New())
		cmd.SetArgs([]string{"--profile", "/does/not/exist.toml"})

		Expect(cmd.ExecuteContext(context.Background())).To(HaveOccurred())
	})
})
