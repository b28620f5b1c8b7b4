package physics

import "github.com/go-gl/mathgl/mgl64"

// Точка прошлого шага считается той же, если в системе тела a она сдвинулась
// не дальше matchDistance, а нормаль почти не повернулась
const (
	matchDistance = 0.02
	matchNormal   = 0.95
)

type pairKey struct {
	a, b uint64
}

type cachedImpulse struct {
	local              mgl64.Vec3
	normal             mgl64.Vec3
	accN, accT1, accT2 float64
}

// contactCache хранит накопленные импульсы контактов прошлого шага по парам тел.
// Ими прогревается решатель: стопка в покое начинает шаг почти с готовым решением.
type contactCache struct {
	index  map[pairKey][2]int
	points []cachedImpulse
}

// load переносит импульсы на совпавшие точки новых контактов
func (cc *contactCache) load(contacts []contact) {
	for i := range contacts {
		c := &contacts[i]
		c.local = c.a.ToLocal(c.point)
		span, ok := cc.index[pairKey{c.a.ID, c.b.ID}]
		if !ok {
			continue
		}
		for _, p := range cc.points[span[0]:span[1]] {
			if p.local.Sub(c.local).LenSqr() > matchDistance*matchDistance || p.normal.Dot(c.normal) < matchNormal {
				continue
			}
			c.accN, c.accT1, c.accT2 = p.accN, p.accT1, p.accT2
			break
		}
	}
}

// store запоминает импульсы шага. Контакты одной пары в списке идут подряд.
func (cc *contactCache) store(contacts []contact) {
	clear(cc.index)
	cc.points = cc.points[:0]
	for i := range contacts {
		c := &contacts[i]
		key := pairKey{c.a.ID, c.b.ID}
		n := len(cc.points)
		cc.points = append(cc.points, cachedImpulse{
			local:  c.local,
			normal: c.normal,
			accN:   c.accN,
			accT1:  c.accT1,
			accT2:  c.accT2,
		})
		if span, ok := cc.index[key]; ok && span[1] == n {
			cc.index[key] = [2]int{span[0], n + 1}
			continue
		}
		cc.index[key] = [2]int{n, n + 1}
	}
}
