package extraction

import (
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/fitparse/internal/workout"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		ollama  *Ollama
		payload Payload
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		ollama, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
		payload, err = Encode(strings.NewReader("pdf bytes"), "application/pdf")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	respondWith := func(content string) {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest("POST", "/api/chat"),
			ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: content},
				Done:    true,
			}),
		))
	}

	When("the model returns a valid array", func() {
		BeforeEach(func() {
			respondWith(`[{"date":"2024-12-12","exercise":"Squat","weight":"185 lb","reps":8,"set_number":1,"notes":""}]`)
		})

		It("returns the extracted sets", func() {
			sets, err := ollama.Extract(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(sets).To(Equal([]workout.Set{
				{Date: "2024-12-12", Exercise: "Squat", Weight: "185 lb", Reps: 8, SetNumber: 1, Notes: ""},
			}))
		})
	})

	When("the model returns prose instead of JSON", func() {
		BeforeEach(func() {
			respondWith("Sorry, I could not read the file.")
		})

		It("fails with a parse error", func() {
			_, err := ollama.Extract(payload)
			Expect(err).To(MatchError(ContainSubstring("failed to parse workout data")))
		})
	})

	When("the model returns nothing", func() {
		BeforeEach(func() {
			respondWith("")
		})

		It("reports that no data was extracted", func() {
			_, err := ollama.Extract(payload)
			Expect(err).To(MatchError(ContainSubstring("no data extracted from file")))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"),
			))
		})

		It("surfaces the status and body", func() {
			_, err := ollama.Extract(payload)
			Expect(err).To(MatchError(ContainSubstring("ollama API error (status 500)")))
		})
	})
})
