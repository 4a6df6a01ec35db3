package receipt_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/tidwall/gjson"

	"github.com/zombor/receipt-scanner/internal/api"
	"github.com/zombor/receipt-scanner/internal/receipt"
)

var _ = Describe("Integration", func() {
	var (
		graphql  *ghttp.Server
		frontend *ghttp.Server
		snapshot *receipt.BoltSnapshot
		store    *receipt.LocalStorage
		server   *receipt.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		snapshot, err = receipt.NewBoltSnapshot(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "images"))
		Expect(err).NotTo(HaveOccurred())

		graphql = ghttp.NewServer()
		endpoints := api.NewEndpoints(graphql.URL())
		client := api.NewClient(endpoints, nil)
		service := receipt.NewService(client, endpoints, snapshot, store)
		server = receipt.NewServer(service, receipt.BasicAuth{})

		frontend = ghttp.NewServer()
	})

	AfterEach(func() {
		frontend.Close()
		graphql.Close()
		snapshot.Close()
	})

	It("should upload a browser form as a GraphQL multipart request and cache the list", func() {
		created := `{"id":"r1","storeName":"CVS Pharmacy","totalAmount":25.99,"purchaseDate":"2024-01-15",` +
			`"imageUrl":"/uploads/r1.jpg","createdAt":"2024-01-15T10:00:00Z","items":[]}`

		graphql.AppendHandlers(
			ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/graphql"),
				ghttp.VerifyHeaderKV("Apollo-Require-Preflight", "true"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())

					operations := r.FormValue("operations")
					Expect(gjson.Get(operations, "operationName").String()).To(Equal("UploadReceipt"))
					Expect(gjson.Get(operations, "variables.file").Type).To(Equal(gjson.Null))
					Expect(r.FormValue("map")).To(MatchJSON(`{"0":["variables","file"]}`))

					f, header, err := r.FormFile("0")
					Expect(err).NotTo(HaveOccurred())
					defer f.Close()
					Expect(header.Filename).To(Equal("receipt.jpg"))
					Expect(header.Header.Get("Content-Type")).To(Equal("image/jpeg"))
					data, _ := io.ReadAll(f)
					Expect(string(data)).To(Equal("jpeg bytes"))
				},
				ghttp.RespondWith(http.StatusOK, `{"data":{"uploadReceipt":`+created+`}}`),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/graphql"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWith(http.StatusOK, `{"data":{"receipts":[`+created+`]}}`),
			),
		)
		frontend.AppendHandlers(server.ServeHTTP)

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="receipt.jpg"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		part.Write([]byte("jpeg bytes"))
		Expect(writer.Close()).To(Succeed())

		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
		resp, err := client.Post(frontend.URL()+"/upload", writer.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		location, err := url.Parse(resp.Header.Get("Location"))
		Expect(err).NotTo(HaveOccurred())
		Expect(location.Query().Get("level")).To(Equal("success"))
		Expect(location.Query().Get("detail")).To(Equal("Extracted data from CVS Pharmacy"))

		Expect(graphql.ReceivedRequests()).To(HaveLen(2))

		cached, syncedAt, err := snapshot.LoadReceipts()
		Expect(err).NotTo(HaveOccurred())
		Expect(cached).To(HaveLen(1))
		Expect(cached[0].StoreName).To(Equal("CVS Pharmacy"))
		Expect(syncedAt.IsZero()).To(BeFalse())
	})

	It("should reject an oversized image without calling GraphQL", func() {
		frontend.AppendHandlers(server.ServeHTTP)

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="huge.png"`)
		header.Set("Content-Type", "image/png")
		part, _ := writer.CreatePart(header)
		part.Write(make([]byte, receipt.MaxFileSize+1))
		Expect(writer.Close()).To(Succeed())

		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
		resp, err := client.Post(frontend.URL()+"/upload", writer.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		location, _ := url.Parse(resp.Header.Get("Location"))
		Expect(location.Query().Get("detail")).To(Equal("File size exceeds 10 MB. Please upload a smaller file."))
		Expect(graphql.ReceivedRequests()).To(BeEmpty())
	})
})
