package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/covidchart/pkg/httputil"
)

func ExampleRetry() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return httputil.Retryable(errors.New("status 503"))
		}
		return nil
	})
	fmt.Println(attempts, err)
	// Output:
	// 3 <nil>
}

func ExampleRetry_permanent() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return errors.New("status 404")
	})
	fmt.Println(attempts, err)
	// Output:
	// 1 status 404
}
