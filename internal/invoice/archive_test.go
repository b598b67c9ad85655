package invoice

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("should write the file under the base directory", func() {
			savedPath, err := storage.Save("abc-123.pdf", []byte("document bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("abc-123.pdf"))
			Expect(filepath.Join(tmpDir, "abc-123.pdf")).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("should return saved content", func() {
			_, err := storage.Save("abc-123.pdf", []byte("document bytes"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("abc-123.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("document bytes")))
		})

		It("should fail for a missing file", func() {
			_, err := storage.Get("missing.pdf")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("should remove the file", func() {
			_, err := storage.Save("abc-123.pdf", []byte("document bytes"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("abc-123.pdf")).To(Succeed())
			Expect(filepath.Join(tmpDir, "abc-123.pdf")).NotTo(BeAnExistingFile())
		})
	})
})
