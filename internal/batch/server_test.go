package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/fitparse/internal/workout"
)

type uploadFile struct {
	name        string
	contentType string
	content     string
}

// buildUpload assembles a multipart request body from the given files
func buildUpload(files []uploadFile) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.name))
		if f.contentType != "" {
			header.Set("Content-Type", f.contentType)
		}
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(f.content))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	// Route every endpoint to the real mux; polling specs make an unbounded
	// number of requests, so appended one-shot handlers won't do.
	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		for _, route := range []struct{ method, path string }{
			{"GET", "/"},
			{"POST", "/api/batches"},
			{"GET", "/api/state"},
			{"POST", "/api/reset"},
			{"GET", "/api/export"},
		} {
			ghttpServer.RouteToHandler(route.method, route.path, server.ServeHTTP)
		}
	}

	upload := func(files []uploadFile) *http.Response {
		body, contentType := buildUpload(files)
		resp, err := http.Post(ghttpServer.URL()+"/api/batches", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	currentState := func() State {
		resp, err := http.Get(ghttpServer.URL() + "/api/state")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		var state State
		Expect(json.NewDecoder(resp.Body).Decode(&state)).To(Succeed())
		return state
	}

	BeforeEach(func() {
		extractor = &mockExtractor{}
		service = NewService(extractor)
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleIndex", func() {
		It("serves the upload page", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("FitParse"))
		})
	})

	Describe("handleCreateBatch", func() {
		When("the batch mixes valid and unsupported files", func() {
			var resp *http.Response

			BeforeEach(func() {
				extractor.results = [][]workout.Set{
					{{Date: "2024-12-09", Exercise: "Bench Press", Weight: "135 lb", Reps: 5, SetNumber: 1}},
				}
				resp = upload([]uploadFile{
					{name: "log.pdf", contentType: "application/pdf", content: "pdf bytes"},
					{name: "notes.txt", contentType: "text/plain", content: "not allowed"},
				})
			})

			AfterEach(func() {
				resp.Body.Close()
			})

			It("accepts the batch", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			})

			It("reports the rejected file by name", func() {
				var result map[string][]string
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result["accepted"]).To(Equal([]string{"log.pdf"}))
				Expect(result["rejected"]).To(Equal([]string{"notes.txt"}))
			})

			It("still processes the valid file", func() {
				Eventually(func() []workout.Set {
					return currentState().Data
				}).Should(HaveLen(1))
				Expect(extractor.callCount()).To(Equal(1))
			})
		})

		When("every file is unsupported", func() {
			It("returns bad request without starting a batch", func() {
				resp := upload([]uploadFile{
					{name: "notes.txt", contentType: "text/plain", content: "nope"},
				})
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(extractor.callCount()).To(Equal(0))
			})
		})

		When("the upload exceeds the size cap", func() {
			var originalCap int64

			BeforeEach(func() {
				originalCap = maxFormSize
				maxFormSize = int64(1 << 10)
			})

			AfterEach(func() {
				maxFormSize = originalCap
			})

			It("rejects it with the too-large message without starting a batch", func() {
				resp := upload([]uploadFile{
					{name: "big.mp4", contentType: "video/mp4", content: strings.Repeat("x", 4096)},
				})
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				var result map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result["error"]).To(ContainSubstring("Upload is too large"))
				Expect(extractor.callCount()).To(Equal(0))
			})
		})

		When("the content type is missing", func() {
			It("falls back to the file extension", func() {
				resp := upload([]uploadFile{
					{name: "recording.mov", content: "video bytes"},
				})
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
				Eventually(extractor.callCount).Should(Equal(1))
				Expect(extractor.calls[0].MIMEType).To(Equal("video/quicktime"))
			})
		})

		When("a batch is already running", func() {
			BeforeEach(func() {
				extractor.gate = make(chan struct{})
				extractor.started = make(chan struct{}, 1)
				resp := upload([]uploadFile{
					{name: "log.pdf", contentType: "application/pdf", content: "pdf bytes"},
				})
				resp.Body.Close()
				<-extractor.started
			})

			AfterEach(func() {
				close(extractor.gate)
				Eventually(func() bool { return currentState().Loading }).Should(BeFalse())
			})

			It("returns conflict", func() {
				resp := upload([]uploadFile{
					{name: "other.pdf", contentType: "application/pdf", content: "more"},
				})
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			})
		})
	})

	Describe("handleState", func() {
		When("an extraction fails", func() {
			BeforeEach(func() {
				extractor.errs = []error{fmt.Errorf("no data extracted from file")}
				resp := upload([]uploadFile{
					{name: "log.pdf", contentType: "application/pdf", content: "pdf bytes"},
				})
				resp.Body.Close()
			})

			It("exposes the error with no data", func() {
				Eventually(func() string { return currentState().Err }).Should(Equal("no data extracted from file"))
				Expect(currentState().Data).To(BeEmpty())
			})
		})
	})

	Describe("handleExport", func() {
		When("data has been extracted", func() {
			BeforeEach(func() {
				extractor.results = [][]workout.Set{
					{
						{Date: "2024-12-09", Exercise: "Bench Press", Weight: "135 lb", Reps: 5, SetNumber: 1},
						{Date: "2024-12-12", Exercise: "Squat", Weight: "185 lb", Reps: 8, SetNumber: 1, Notes: "PB"},
					},
				}
				resp := upload([]uploadFile{
					{name: "log.pdf", contentType: "application/pdf", content: "pdf bytes"},
				})
				resp.Body.Close()
				Eventually(func() []workout.Set { return currentState().Data }).Should(HaveLen(2))
			})

			It("serves the sorted CSV as an attachment", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/export")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv;charset=utf-8"))
				Expect(resp.Header.Get("Content-Disposition")).To(MatchRegexp(`attachment; filename="workout_batch_export_\d{4}-\d{2}-\d{2}\.csv"`))

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				lines := strings.Split(string(body), "\n")
				Expect(lines).To(HaveLen(3))
				Expect(lines[0]).To(Equal("date,exercise,weight,reps,set_number,notes"))
				Expect(lines[1]).To(ContainSubstring("Squat"))
				Expect(lines[2]).To(ContainSubstring("Bench Press"))
			})
		})

		When("no data is present", func() {
			It("returns not found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/export")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleReset", func() {
		BeforeEach(func() {
			extractor.results = [][]workout.Set{
				{{Date: "2024-12-09", Exercise: "Bench Press", Weight: "135 lb", Reps: 5, SetNumber: 1}},
			}
			resp := upload([]uploadFile{
				{name: "log.pdf", contentType: "application/pdf", content: "pdf bytes"},
			})
			resp.Body.Close()
			Eventually(func() []workout.Set { return currentState().Data }).Should(HaveLen(1))
		})

		It("returns the session to the empty initial state", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/reset", "", nil)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(currentState()).To(Equal(State{}))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/state")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts requests with valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/state", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "pass")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
