package scanning

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/finsight/internal/ocr"
)

var _ = Describe("Ollama", func() {
	var server *ghttp.Server

	BeforeEach(func() {
		server = ghttp.NewServer()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewOllamaLoader", func() {
		When("the model is available", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest(http.MethodPost, "/api/show"),
						ghttp.VerifyJSON(`{"model":"llava"}`),
						ghttp.RespondWith(http.StatusOK, `{}`),
					),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest(http.MethodPost, "/api/generate"),
						ghttp.VerifyJSON(`{"model":"llava","keep_alive":"30m"}`),
						ghttp.RespondWith(http.StatusOK, `{"done":true}`),
					),
				)
			})

			It("should load the model into memory", func() {
				w, err := NewOllamaLoader(server.URL(), "llava")(context.Background(), ocr.Config{Language: "eng"})
				Expect(err).NotTo(HaveOccurred())
				Expect(w).NotTo(BeNil())
				Expect(server.ReceivedRequests()).To(HaveLen(2))
			})
		})

		When("the model has not been pulled", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.RespondWith(http.StatusNotFound, `{"error":"model 'llava' not found"}`),
				)
			})

			It("should fail without retrying", func() {
				_, err := NewOllamaLoader(server.URL(), "llava")(context.Background(), ocr.Config{})
				Expect(err).To(MatchError(ContainSubstring("status 404")))
				Expect(server.ReceivedRequests()).To(HaveLen(1))
			})
		})
	})

	Describe("Recognize", func() {
		var worker *Ollama

		BeforeEach(func() {
			worker = newOllama(server.URL(), "llava", ocr.Config{Whitelist: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.$: "})
			worker.retryDelay = time.Millisecond
		})

		When("the server recovers after an error", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.RespondWith(http.StatusServiceUnavailable, `busy`),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
						ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
							Message: ollamaMessage{Role: "assistant", Content: "```\nSTARBUCKS\nTotal: $4.95\n```"},
							Done:    true,
						}),
					),
				)
			})

			It("should retry and clean the transcript", func() {
				text, err := worker.Recognize(context.Background(), []byte("png-bytes"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal("STARBUCKS\nT: $4.95"))
				Expect(server.ReceivedRequests()).To(HaveLen(2))
			})
		})

		When("the server keeps failing", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.RespondWith(http.StatusInternalServerError, `boom`),
					ghttp.RespondWith(http.StatusInternalServerError, `boom`),
					ghttp.RespondWith(http.StatusInternalServerError, `boom`),
				)
			})

			It("should give up after the configured attempts", func() {
				_, err := worker.Recognize(context.Background(), []byte("png-bytes"), "image/png")
				Expect(err).To(MatchError(ContainSubstring("status 500")))
				Expect(server.ReceivedRequests()).To(HaveLen(3))
			})
		})

		When("the model answers with nothing", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{Done: true}),
				)
			})

			It("returns ErrNoText", func() {
				_, err := worker.Recognize(context.Background(), []byte("png-bytes"), "image/png")
				Expect(err).To(MatchError(ErrNoText))
			})
		})
	})

	Describe("Terminate", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/api/generate"),
					ghttp.VerifyJSON(`{"model":"llava","keep_alive":0}`),
					ghttp.RespondWith(http.StatusOK, `{"done":true}`),
				),
			)
		})

		It("should unload the model", func() {
			worker := newOllama(server.URL(), "llava", ocr.Config{})
			Expect(worker.Terminate()).To(Succeed())
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})
})
