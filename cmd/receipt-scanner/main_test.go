package main

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseRange", func() {
	It("should leave both ends open when empty", func() {
		r, err := parseRange("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.IsZero()).To(BeTrue())
	})

	It("should include the whole end day", func() {
		r, err := parseRange("2024-01-01", "2024-01-31")
		Expect(err).NotTo(HaveOccurred())
		Expect(*r.From).To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)))
		Expect(r.To.After(time.Date(2024, 1, 31, 23, 59, 59, 0, time.Local))).To(BeTrue())
		Expect(r.To.Before(time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local))).To(BeTrue())
	})

	It("returns the error for a bad date", func() {
		_, err := parseRange("01/02/2024", "")
		Expect(err).To(MatchError(ContainSubstring("invalid --from date")))
	})
})

var _ = Describe("loadEnvFile", func() {
	const key = "RECEIPT_SCANNER_API_BASE_URL"

	AfterEach(func() {
		os.Unsetenv(key)
	})

	When("the file exists", func() {
		It("should export its variables", func() {
			path := filepath.Join(GinkgoT().TempDir(), "test.env")
			Expect(os.WriteFile(path, []byte(key+"=http://api.example.com\n"), 0600)).To(Succeed())
			GinkgoT().Setenv(envPrefix+"_ENV_FILE", path)

			Expect(loadEnvFile()).To(Succeed())
			Expect(os.Getenv(key)).To(Equal("http://api.example.com"))
		})
	})

	When("the file is missing", func() {
		It("should not return an error", func() {
			GinkgoT().Setenv(envPrefix+"_ENV_FILE", filepath.Join(GinkgoT().TempDir(), "missing.env"))
			Expect(loadEnvFile()).To(Succeed())
		})
	})
})

var _ = Describe("newRootCommand", func() {
	It("should register every subcommand", func() {
		root := newRootCommand()
		names := make([]string, 0, len(root.Subcommands))
		for _, cmd := range root.Subcommands {
			names = append(names, cmd.Name)
		}
		Expect(names).To(Equal([]string{"serve", "upload", "list", "show", "image"}))
	})
})
