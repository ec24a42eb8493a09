package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPoolCollector_NoPool(t *testing.T) {
	c := newPoolCollector()

	assert.Equal(t, 0, testutil.CollectAndCount(c))
}
