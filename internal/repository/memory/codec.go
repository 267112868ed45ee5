package memory

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/cellarpress/sommelier/internal/domain"
)

// vectorToBytes encodes a float32 vector as the little-endian blob
// FT.SEARCH expects in PARAMS.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return rueidis.BinaryString(buf)
}

// parseKNNResult parses an FT.SEARCH KNN reply.
// 2-stride: [total, key1, fields1, key2, fields2, ...]
func parseKNNResult(raw []rueidis.RedisMessage) ([]domain.MemoryHit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]domain.MemoryHit, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		pairs := parseFieldPairs(fields)
		hit := domain.MemoryHit{Text: pairs["text"]}

		if scoreStr, ok := pairs["__vector_score"]; ok {
			if s, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				hit.Similarity = max(0, 1.0-s) // cosine distance → similarity, clamped to [0,1]
			}
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

// parseListResult parses a plain FT.SEARCH reply without scores.
func parseListResult(raw []rueidis.RedisMessage) ([]domain.MemoryHit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]domain.MemoryHit, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(fields)
		hits = append(hits, domain.MemoryHit{Text: pairs["text"]})
	}

	return hits, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	pairs := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, err := fields[i].ToString()
		if err != nil {
			continue
		}
		v, err := fields[i+1].ToString()
		if err != nil {
			continue
		}
		pairs[k] = v
	}
	return pairs
}

// escapeTag escapes characters with special meaning in TAG queries.
var tagEscaper = strings.NewReplacer(
	"-", "\\-", ".", "\\.", "@", "\\@", ":", "\\:",
	"{", "\\{", "}", "\\}", "|", "\\|", " ", "\\ ",
)

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
