package utils

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of float64 samples.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 100 // Default reasonable size
	}

	return &RingBuffer{
		data:     make([]float64, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a sample, overwriting the oldest when full.
func (rb *RingBuffer) Append(sample float64) {
	rb.data[rb.index] = sample
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// Size returns the current number of stored samples.
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Mean returns the average of the stored samples, 0 when empty.
func (rb *RingBuffer) Mean() float64 {
	if rb.size == 0 {
		return 0
	}

	sum := 0.0
	if rb.size == rb.capacity {
		for _, v := range rb.data {
			sum += v
		}
	} else {
		for i := 0; i < rb.size; i++ {
			sum += rb.data[i]
		}
	}
	return sum / float64(rb.size)
}

// -----------------------------------------------------------------------------

// GetAll returns the samples in insertion order (oldest to newest).
func (rb *RingBuffer) GetAll() []float64 {
	if rb.size == 0 {
		return []float64{}
	}

	result := make([]float64, rb.size)

	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	}

	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}
