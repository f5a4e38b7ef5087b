package meta_test

import (
	"runtime"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/palrcon/internal/meta"
)

var _ = Describe("meta / Info", func() {
	It("renders dev builds", func() {
		info := meta.Info{GoVersion: "go1.18", Platform: "linux amd64"}
		Expect(info.String()).To(Equal("palrcon dev, go1.18 linux amd64"))
	})

	It("renders linker provided fields", func() {
		info := meta.Info{
			Version:   "1.2.0",
			Build:     "abc123",
			Branch:    "main",
			BuildTime: "2024/01/02 03:04:05",
			GoVersion: "go1.18",
			Platform:  "linux amd64",
		}

		Expect(info.String()).To(Equal("palrcon 1.2.0 (abc123@main) built 2024/01/02 03:04:05, go1.18 linux amd64"))
	})

	It("reports the running Go version", func() {
		Expect(meta.GetInfo().GoVersion).To(Equal(runtime.Version()))
	})
})
