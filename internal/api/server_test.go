package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/finsight/internal/email"
	"github.com/zombor/finsight/internal/fees"
	"github.com/zombor/finsight/internal/subscriptions"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		recognizer  *mockRecognizer
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		recognizer = &mockRecognizer{text: "Total: $23.47\nSTARBUCKS"}
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, storage, recognizer, testDetectors(march1), &mockIDGenerator{}, &mockTimeSource{now: march1})
		server := NewServer(service, auth)

		ghttpServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	request := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	postJSON := func(path, body string) *http.Response {
		return request(http.MethodPost, path, bytes.NewBufferString(body), "application/json")
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	upload := func(filename, partContentType string, data []byte) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if partContentType != "" {
			h.Set("Content-Type", partContentType)
		}
		part, err := writer.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())
		return request(http.MethodPost, "/api/receipts", &b, writer.FormDataContentType())
	}

	Describe("GET /health", func() {
		It("should answer ok", func() {
			resp := request(http.MethodGet, "/health", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("ok"))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := request(http.MethodOptions, "/api/fees/detect", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})

		It("should set headers on normal responses", func() {
			resp := request(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should accept valid credentials", func() {
			resp := request(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject missing credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should reject a wrong password", func() {
			auth.Password = "wrong"
			resp := request(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should leave the health check open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /api/receipts", func() {
		When("the upload is recognized", func() {
			It("should create a scan", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("image"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var scan Scan
				decode(resp, &scan)
				Expect(scan.ID).To(Equal("scan-1"))
				Expect(scan.ContentType).To(Equal("image/jpeg"))
				Expect(scan.Purchase.MerchantName).To(Equal("STARBUCKS"))
			})

			It("should infer the content type from the extension", func() {
				resp := upload("receipt.HEIC", "", []byte("image"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var scan Scan
				decode(resp, &scan)
				Expect(scan.ContentType).To(Equal("image/heic"))
			})
		})

		When("recognition fails", func() {
			BeforeEach(func() {
				recognizer.err = errors.New("model unavailable")
			})

			It("should answer 422 with success false", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("image"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var body recognitionFailure
				decode(resp, &body)
				Expect(body.Success).To(BeFalse())
				Expect(body.Error).To(ContainSubstring("model unavailable"))
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("the form has no file", func() {
			It("should answer bad request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				Expect(writer.WriteField("note", "no file")).To(Succeed())
				Expect(writer.Close()).To(Succeed())

				resp := request(http.MethodPost, "/api/receipts", &b, writer.FormDataContentType())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is not multipart", func() {
			It("should answer bad request", func() {
				resp := request(http.MethodPost, "/api/receipts", bytes.NewBufferString("invalid"), "multipart/form-data")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("scan retrieval", func() {
		JustBeforeEach(func() {
			Expect(upload("receipt.png", "image/png", []byte("png-bytes")).StatusCode).To(Equal(http.StatusCreated))
		})

		It("should list scans", func() {
			resp := request(http.MethodGet, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var scans []Scan
			decode(resp, &scans)
			Expect(scans).To(HaveLen(1))
		})

		It("should get a scan", func() {
			resp := request(http.MethodGet, "/api/receipts/scan-1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var scan Scan
			decode(resp, &scan)
			Expect(scan.Text).To(Equal("Total: $23.47\nSTARBUCKS"))
		})

		It("should serve the file", func() {
			resp := request(http.MethodGet, "/api/receipts/scan-1/file", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("png-bytes"))
		})

		It("should delete a scan", func() {
			resp := request(http.MethodDelete, "/api/receipts/scan-1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.scans).To(BeEmpty())
		})

		It("should answer 404 for unknown scans", func() {
			Expect(request(http.MethodGet, "/api/receipts/missing", nil, "").StatusCode).To(Equal(http.StatusNotFound))
			Expect(request(http.MethodDelete, "/api/receipts/missing", nil, "").StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /api/fees/detect", func() {
		It("should detect fees in transactions", func() {
			resp := postJSON("/api/fees/detect", `{"transactions":[
				{"id":"e1","description":"Overdraft Fee - Chase Checking","amount":35,"date":"2024-03-01"},
				{"id":"e2","description":"Coffee","amount":4.5,"date":"2024-03-01"}
			]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var detected []fees.DetectedFee
			decode(resp, &detected)
			Expect(detected).To(HaveLen(1))
			Expect(detected[0].ExpenseID).To(Equal("e1"))
			Expect(detected[0].FeeCategoryName).To(Equal("Overdraft Fee"))
			Expect(detected[0].InstitutionName).To(Equal("Chase"))
		})

		It("should reject malformed transactions", func() {
			resp := postJSON("/api/fees/detect", `{"transactions":[{"id":"e1","amount":35,"date":"2024-03-01"}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body map[string]string
			decode(resp, &body)
			Expect(body["error"]).To(ContainSubstring("description"))
		})

		It("should reject invalid JSON", func() {
			resp := postJSON("/api/fees/detect", `{`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("confirmed fees", func() {
		const confirmed = `{"expense_id":"e1","fee_category_name":"Overdraft Fee","category_type":"banking",
			"amount":35,"institution_name":"Chase","account_type":"checking","date":"2024-02-27",
			"detection_confidence":0.9,"detected_automatically":true}`

		It("should store and list a confirmed fee", func() {
			resp := postJSON("/api/fees", confirmed)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			resp = request(http.MethodGet, "/api/fees", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var listed []fees.DetectedFee
			decode(resp, &listed)
			Expect(listed).To(HaveLen(1))
			Expect(listed[0].DetectedAutomatically).To(BeTrue())
		})

		It("should not detect a confirmed fee again", func() {
			Expect(postJSON("/api/fees", confirmed).StatusCode).To(Equal(http.StatusCreated))

			resp := postJSON("/api/fees/detect", `{"transactions":[
				{"id":"e1","description":"Overdraft Fee - Chase Checking","amount":35,"date":"2024-02-27"}
			]}`)
			var detected []fees.DetectedFee
			decode(resp, &detected)
			Expect(detected).To(BeEmpty())
		})

		It("should reject incomplete fees", func() {
			resp := postJSON("/api/fees", `{"fee_category_name":"Overdraft Fee","amount":35,"date":"2024-02-27"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should report on confirmed fees", func() {
			Expect(postJSON("/api/fees", confirmed).StatusCode).To(Equal(http.StatusCreated))

			resp := request(http.MethodGet, "/api/fees/report?range=quarter", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var report FeeReport
			decode(resp, &report)
			Expect(report.Analytics.TimeRange).To(Equal(fees.RangeQuarter))
			Expect(report.Analytics.FeeCount).To(Equal(1))
			Expect(report.Recommendations).NotTo(BeEmpty())
		})

		It("should reject unknown ranges", func() {
			resp := request(http.MethodGet, "/api/fees/report?range=decade", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should answer 500 when the store fails", func() {
			db.listFeeErr = errors.New("database locked")
			resp := request(http.MethodGet, "/api/fees", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("POST /api/subscriptions/detect", func() {
		It("should return candidates", func() {
			resp := postJSON("/api/subscriptions/detect", `{"expenses":[
				{"id":"n1","description":"Netflix","amount":15.99,"date":"2024-01-01"},
				{"id":"n2","description":"Netflix","amount":15.99,"date":"2024-02-01"}
			]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var candidates []subscriptions.Candidate
			decode(resp, &candidates)
			Expect(candidates).To(HaveLen(1))
			Expect(candidates[0].Provider).To(Equal("Netflix"))
			Expect(candidates[0].NextBillingDate.String()).To(Equal("2024-03-01"))
		})

		It("should return an empty list when nothing recurs", func() {
			resp := postJSON("/api/subscriptions/detect", `{"expenses":[]}`)
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(MatchJSON(`[]`))
		})
	})

	Describe("POST /api/emails/classify", func() {
		It("should return one result per email", func() {
			resp := postJSON("/api/emails/classify", `{"emails":[
				{"id":"a","sender_email":"receipts@amazon.com","subject":"Your Amazon.com order of $42.50 has shipped","attachment_count":1},
				{"id":"b","sender_email":"friend@example.org","subject":"Lunch tomorrow?"}
			]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var results []email.BatchResult
			decode(resp, &results)
			Expect(results).To(HaveLen(2))
			Expect(results[0].ProcessingStatus).To(Equal(email.StatusProcessed))
			Expect(results[0].Purchase.MerchantName).To(Equal("Amazon"))
			Expect(results[1].ProcessingStatus).To(Equal(email.StatusNotReceipt))
		})
	})
})
