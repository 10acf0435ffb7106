package core

import (
	"fmt"
	"sync"
)

// BatchInverseM31 inverts a batch of base field elements using Montgomery's
// trick: one inversion plus 3(n-1) multiplications. Fails if any element is
// zero.
func BatchInverseM31(elements []M31) ([]M31, error) {
	n := len(elements)
	if n == 0 {
		return []M31{}, nil
	}

	for i, e := range elements {
		if e.IsZero() {
			return nil, fmt.Errorf("batch inversion: element %d: %w", i, ErrZeroInverse)
		}
	}

	acc := make([]M31, n)
	acc[0] = elements[0]
	for i := 1; i < n; i++ {
		acc[i] = acc[i-1].Mul(elements[i])
	}

	accInv, err := acc[n-1].Inverse()
	if err != nil {
		return nil, fmt.Errorf("batch inversion: %w", err)
	}

	results := make([]M31, n)
	for i := n - 1; i > 0; i-- {
		results[i] = accInv.Mul(acc[i-1])
		accInv = accInv.Mul(elements[i])
	}
	results[0] = accInv
	return results, nil
}

// BatchInverseQM31 inverts a batch of secure field elements using
// Montgomery's trick. Fails if any element is zero.
func BatchInverseQM31(elements []QM31) ([]QM31, error) {
	n := len(elements)
	if n == 0 {
		return []QM31{}, nil
	}

	for i, e := range elements {
		if e.IsZero() {
			return nil, fmt.Errorf("batch inversion: element %d: %w", i, ErrZeroInverse)
		}
	}

	acc := make([]QM31, n)
	acc[0] = elements[0]
	for i := 1; i < n; i++ {
		acc[i] = acc[i-1].Mul(elements[i])
	}

	accInv, err := acc[n-1].Inverse()
	if err != nil {
		return nil, fmt.Errorf("batch inversion: %w", err)
	}

	results := make([]QM31, n)
	for i := n - 1; i > 0; i-- {
		results[i] = accInv.Mul(acc[i-1])
		accInv = accInv.Mul(elements[i])
	}
	results[0] = accInv
	return results, nil
}

// ParallelBatchInverseQM31 splits very large batches across workers, batch
// inverting each chunk independently. Falls back to the sequential version
// for small inputs. The channel is untouched here, so chunk ordering does
// not affect the transcript.
func ParallelBatchInverseQM31(elements []QM31, numWorkers int) ([]QM31, error) {
	n := len(elements)
	if n < 1024 || numWorkers <= 1 {
		return BatchInverseQM31(elements)
	}

	chunkSize := (n + numWorkers - 1) / numWorkers
	results := make([]QM31, n)

	var wg sync.WaitGroup
	errChan := make(chan error, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			start := workerID * chunkSize
			if start >= n {
				return
			}
			end := min(start+chunkSize, n)

			inverted, err := BatchInverseQM31(elements[start:end])
			if err != nil {
				errChan <- fmt.Errorf("worker %d: %w", workerID, err)
				return
			}
			copy(results[start:end], inverted)
		}(w)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return results, nil
}
