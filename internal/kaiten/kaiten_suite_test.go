package kaiten_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKaiten(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Kaiten Client Suite")
}
