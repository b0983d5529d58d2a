// Package vqcodec implements the per-bank vector-quantization codec of
// spec.md §4.F: k-means-trained 256-entry codebooks over fixed-size level
// vectors, with a reserved silence code and bank-deterministic training.
//
// Grounded on pokey_engine.go's table-driven DAC mapping (a small integer
// domain mapped through a trained/precomputed lookup) generalized from a
// single static curve to a per-bank trained codebook, and on
// cpu_6502_opcode_table_gen.go's flat 256-entry table shape, which is
// exactly the codebook's on-target layout (256 entries indexed by a single
// byte). k-means++ seeding uses math/rand with a bank-derived seed, the
// same "seed from a stable integer key" idiom sap_parser.go uses when
// deriving deterministic block identifiers from file offsets.
package vqcodec

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/intuitionamiga/pokeyxex/bank"
)

const (
	codebookSize = 256
	maxIter      = 20
)

// Stats reports k-means convergence and reconstruction error for one bank,
// surfaced only when Config.Verbose is set (spec.md §7: "never gating").
type Stats struct {
	Iterations int
	Converged  bool
	RMSE       float64
}

// Codec implements bank.Codec for vector quantization.
type Codec struct {
	VecSize int // V in {2,4,8,16}
	Levels  int // L = levels.Table.Len(), the level alphabet size
	Gate    int // noise_gate, 0..100 (spec.md §6)
	Verbose bool

	mu    sync.Mutex
	stats map[int]Stats
}

// MaxSamples returns V * (BankSize - 256*V), the largest sample count whose
// 256*V-byte codebook plus ceil(n/V)-byte index stream fits in one bank
// (spec.md §3: "total bank bytes = 256*V + M... <= 16384").
func (c *Codec) MaxSamples(bankIndex int) int {
	capacity := bank.BankSize - codebookSize*c.VecSize
	if capacity <= 0 {
		return 0
	}
	return capacity * c.VecSize
}

// EncodeBank trains a 256-entry codebook on samples (grouped into VecSize
// vectors) and emits codebook-bytes||index-bytes (spec.md §4.F "Bank
// layout").
func (c *Codec) EncodeBank(samples []byte, bankIndex int) (bank.Encoded, error) {
	v := c.VecSize
	if v <= 0 {
		return bank.Encoded{}, fmt.Errorf("vqcodec: vec_size must be positive")
	}
	numVectors := (len(samples) + v - 1) / v
	totalBytes := codebookSize*v + numVectors
	if totalBytes > bank.BankSize {
		return bank.Encoded{}, fmt.Errorf("%w: vq bank needs %d bytes (256*%d codebook + %d indices)", bank.ErrOverflow, totalBytes, v, numVectors)
	}

	maxLevel := c.Levels - 1
	if maxLevel < 0 {
		maxLevel = 0
	}

	vectors := make([][]int, numVectors)
	for i := 0; i < numVectors; i++ {
		vec := make([]int, v)
		for j := 0; j < v; j++ {
			idx := i*v + j
			if idx < len(samples) {
				vec[j] = int(samples[idx])
			}
		}
		vectors[i] = vec
	}

	gateThreshold := 0
	reserveSilence := c.Gate > 0
	if reserveSilence {
		gateThreshold = int(math.Ceil(float64(maxLevel) * float64(c.Gate) / 100.0))
	}
	isSilence := func(vec []int) bool {
		for _, s := range vec {
			if s >= gateThreshold {
				return false
			}
		}
		return true
	}

	seed := int64(bankIndex)*2654435761 + 1 // deterministic, bank-derived (spec.md §4.F/§5)

	var codebook [][]int
	var silenceCode int

	if reserveSilence {
		var trainSet [][]int
		for _, vec := range vectors {
			if !isSilence(vec) {
				trainSet = append(trainSet, vec)
			}
		}
		centroids := kmeansPP(trainSet, codebookSize-1, v, seed)
		iterations, converged := lloyd(trainSet, centroids, maxIter, maxLevel)
		codebook = make([][]int, codebookSize)
		codebook[0] = make([]int, v)
		for i, cen := range centroids {
			codebook[i+1] = cen
		}
		silenceCode = 0
		c.recordStats(bankIndex, iterations, converged, 0)
	} else {
		centroids := kmeansPP(vectors, codebookSize, v, seed)
		assign, iterations, converged := lloydAssign(vectors, centroids, maxIter, maxLevel)
		counts := make([]int, codebookSize)
		for _, a := range assign {
			counts[a]++
		}
		least := 0
		for i := 1; i < codebookSize; i++ {
			if counts[i] < counts[least] {
				least = i
			}
		}
		centroids[least] = make([]int, v)
		codebook = centroids
		silenceCode = least
		c.recordStats(bankIndex, iterations, converged, 0)
	}

	indices := make([]byte, numVectors)
	var sumSq float64
	for i, vec := range vectors {
		var idx int
		if reserveSilence && isSilence(vec) {
			idx = 0
		} else {
			idx = nearestCode(vec, codebook, silenceCode, reserveSilence)
		}
		indices[i] = byte(idx)
		if c.Verbose {
			sumSq += reconstructionError2(vec, codebook[idx])
		}
	}
	if c.Verbose {
		rmse := math.Sqrt(sumSq / float64(len(vectors)*v))
		c.recordRMSE(bankIndex, rmse)
	}

	out := make([]byte, 0, totalBytes)
	for _, cen := range codebook {
		for j := 0; j < v; j++ {
			out = append(out, byte(cen[j]))
		}
	}
	out = append(out, indices...)

	return bank.Encoded{Bytes: bank.PadTo(out, 0)}, nil
}

// Stats returns the recorded telemetry for bankIndex, if Verbose was set
// during encoding.
func (c *Codec) Stats(bankIndex int) (Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[bankIndex]
	return s, ok
}

func (c *Codec) recordStats(bankIndex, iterations int, converged bool, rmse float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		c.stats = make(map[int]Stats)
	}
	c.stats[bankIndex] = Stats{Iterations: iterations, Converged: converged, RMSE: rmse}
}

func (c *Codec) recordRMSE(bankIndex int, rmse float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats[bankIndex]
	s.RMSE = rmse
	c.stats[bankIndex] = s
}

func nearestCode(vec []int, codebook [][]int, silenceCode int, skipSilence bool) int {
	best, bestDist := -1, math.MaxFloat64
	for i, cen := range codebook {
		if skipSilence && i == silenceCode {
			continue
		}
		d := dist2(vec, cen)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best == -1 {
		return silenceCode
	}
	return best
}

func dist2(a, b []int) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

func reconstructionError2(a, b []int) float64 {
	return dist2(a, b)
}

// kmeansPP performs k-means++ seeding over trainSet, returning k centroids
// of dimension vecSize. Deterministic given seed (spec.md §4.F, §5).
func kmeansPP(trainSet [][]int, k, vecSize int, seed int64) [][]int {
	centroids := make([][]int, 0, k)
	if len(trainSet) == 0 {
		for i := 0; i < k; i++ {
			centroids = append(centroids, make([]int, vecSize))
		}
		return centroids
	}

	rng := rand.New(rand.NewSource(seed))
	first := cloneVec(trainSet[rng.Intn(len(trainSet))])
	centroids = append(centroids, first)

	dist2s := make([]float64, len(trainSet))
	for len(centroids) < k {
		var sum float64
		for i, v := range trainSet {
			d := minDist2(v, centroids)
			dist2s[i] = d
			sum += d
		}
		if sum == 0 {
			centroids = append(centroids, cloneVec(trainSet[rng.Intn(len(trainSet))]))
			continue
		}
		r := rng.Float64() * sum
		var acc float64
		chosen := len(trainSet) - 1
		for i, d := range dist2s {
			acc += d
			if acc >= r {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVec(trainSet[chosen]))
	}
	return centroids
}

func minDist2(v []int, centroids [][]int) float64 {
	best := math.MaxFloat64
	for _, c := range centroids {
		d := dist2(v, c)
		if d < best {
			best = d
		}
	}
	return best
}

func cloneVec(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}

// lloyd runs Lloyd's algorithm to convergence or maxIter, mutating
// centroids in place and returning iteration count / convergence flag
// (spec.md §4.F: "stop when assignments are stable or after a fixed
// iteration budget (~20)").
func lloyd(trainSet [][]int, centroids [][]int, maxIter, maxLevel int) (iterations int, converged bool) {
	_, iterations, converged = lloydAssign(trainSet, centroids, maxIter, maxLevel)
	return
}

func lloydAssign(trainSet [][]int, centroids [][]int, maxIter, maxLevel int) (assign []int, iterations int, converged bool) {
	k := len(centroids)
	if k == 0 || len(trainSet) == 0 {
		return make([]int, len(trainSet)), 0, true
	}
	vecSize := len(centroids[0])
	assign = make([]int, len(trainSet))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range trainSet {
			best, bestDist := 0, math.MaxFloat64
			for c, cen := range centroids {
				d := dist2(v, cen)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([][]int, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]int, vecSize)
		}
		for i, v := range trainSet {
			c := assign[i]
			counts[c]++
			for j, x := range v {
				sums[c][j] += x
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				val := int(math.Round(float64(sums[c][j]) / float64(counts[c])))
				if val < 0 {
					val = 0
				}
				if val > maxLevel {
					val = maxLevel
				}
				centroids[c][j] = val
			}
		}

		iterations = iter + 1
		if !changed {
			converged = true
			break
		}
	}
	return assign, iterations, converged
}

// Reconstruct rebuilds the bank's quantized level stream from its codebook
// and index stream (the decode side of the spec.md §4.F bank layout).
// EncodeBank's verbose RMSE is computed directly from the codebook vectors
// and does not call it.
func Reconstruct(codebookBytes []byte, indices []byte, vecSize int) []byte {
	out := make([]byte, 0, len(indices)*vecSize)
	for _, idx := range indices {
		start := int(idx) * vecSize
		if start+vecSize > len(codebookBytes) {
			out = append(out, make([]byte, vecSize)...)
			continue
		}
		out = append(out, codebookBytes[start:start+vecSize]...)
	}
	return out
}
