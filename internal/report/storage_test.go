package report

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		ctx     context.Context
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			key      string
			savedKey string
			err      error
		)

		JustBeforeEach(func() {
			savedKey, err = storage.Save(ctx, key, []byte("photo bytes"))
		})

		When("saving succeeds", func() {
			BeforeEach(func() {
				key = "abc_sheet.jpg"
			})

			It("should return the key", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedKey).To(Equal("abc_sheet.jpg"))
			})

			It("should save the file to disk", func() {
				Expect(filepath.Join(tmpDir, "abc_sheet.jpg")).To(BeAnExistingFile())
			})
		})

		When("the key tries to escape the directory", func() {
			BeforeEach(func() {
				key = "../../escape.jpg"
			})

			It("should keep the file inside the base path", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedKey).To(Equal("escape.jpg"))
				Expect(filepath.Join(tmpDir, "escape.jpg")).To(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		When("file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save(ctx, "abc_sheet.jpg", []byte("photo bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the file data", func() {
				data, err := storage.Get(ctx, "abc_sheet.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("photo bytes"))
			})
		})

		When("file does not exist", func() {
			It("returns the error", func() {
				_, err := storage.Get(ctx, "nonexistent.jpg")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("reading file"))
			})
		})
	})

	Describe("Delete", func() {
		When("file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save(ctx, "abc_sheet.jpg", []byte("photo bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the file from disk", func() {
				Expect(storage.Delete(ctx, "abc_sheet.jpg")).To(Succeed())
				Expect(filepath.Join(tmpDir, "abc_sheet.jpg")).NotTo(BeAnExistingFile())
			})
		})

		When("file does not exist", func() {
			It("returns the error", func() {
				err := storage.Delete(ctx, "nonexistent.jpg")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("deleting file"))
			})
		})
	})

	Describe("NewLocalStorage", func() {
		When("directory does not exist", func() {
			It("should create the directory", func() {
				storagePath := filepath.Join(GinkgoT().TempDir(), "nested", "attachments")
				_, err := NewLocalStorage(storagePath)
				Expect(err).NotTo(HaveOccurred())
				Expect(storagePath).To(BeADirectory())
			})
		})
	})
})
