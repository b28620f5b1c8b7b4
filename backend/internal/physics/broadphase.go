package physics

import "sort"

// SAPBroadphase - sweep and prune по оси X
type SAPBroadphase struct {
	bodies []*Body
}

func (s *SAPBroadphase) add(b *Body) {
	s.bodies = append(s.bodies, b)
}

func (s *SAPBroadphase) remove(b *Body) {
	for i, other := range s.bodies {
		if other == b {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			return
		}
	}
}

// pairs вызывает fn для каждой пары с пересекающимися AABB, где хотя бы одно тело
// динамическое и бодрствует
func (s *SAPBroadphase) pairs(fn func(a, b *Body)) {
	// тела почти не двигаются между шагами, сортировка вставками близка к линейной
	insertionSort(s.bodies)

	for i, a := range s.bodies {
		aMin, aMax := a.AABB()
		for j := i + 1; j < len(s.bodies); j++ {
			b := s.bodies[j]
			bMin, bMax := b.AABB()
			if bMin[0] > aMax[0] {
				break
			}
			if aMax[1] < bMin[1] || bMax[1] < aMin[1] || aMax[2] < bMin[2] || bMax[2] < aMin[2] {
				continue
			}
			if !needsTest(a, b) {
				continue
			}
			fn(a, b)
		}
	}
}

func needsTest(a, b *Body) bool {
	if a.Type != Dynamic && b.Type != Dynamic {
		return false
	}
	aActive := a.Type != Static && a.sleepState != Sleeping
	bActive := b.Type != Static && b.sleepState != Sleeping
	return aActive || bActive
}

func insertionSort(bodies []*Body) {
	if len(bodies) > 512 {
		sort.SliceStable(bodies, func(i, j int) bool { return bodies[i].aabbMin[0] < bodies[j].aabbMin[0] })
		return
	}
	for i := 1; i < len(bodies); i++ {
		b := bodies[i]
		j := i - 1
		for j >= 0 && bodies[j].aabbMin[0] > b.aabbMin[0] {
			bodies[j+1] = bodies[j]
			j--
		}
		bodies[j+1] = b
	}
}
