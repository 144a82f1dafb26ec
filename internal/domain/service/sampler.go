package service

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler выдает псевдослучайные значения для резервных веток извлечения
type Sampler interface {
	// Uniform возвращает значение из полуинтервала [min, max)
	Uniform(min, max float64) float64
}

// UniformSampler - Sampler на основе равномерного распределения gonum
// Безопасен для конкурентного использования
type UniformSampler struct {
	mu  sync.Mutex
	src rand.Source
}

// NewUniformSampler создает Sampler поверх источника src
// При src == nil используется глобальный источник math/rand/v2
func NewUniformSampler(src rand.Source) *UniformSampler {
	return &UniformSampler{src: src}
}

// NewSeededSampler создает детерминированный Sampler (для тестов и CLI --seed)
func NewSeededSampler(seed uint64) *UniformSampler {
	return NewUniformSampler(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Uniform возвращает значение из [min, max)
func (s *UniformSampler) Uniform(min, max float64) float64 {
	if max <= min {
		return min
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dist := distuv.Uniform{Min: min, Max: max, Src: s.src}
	return dist.Rand()
}
