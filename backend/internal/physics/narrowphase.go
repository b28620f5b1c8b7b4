package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// contact - точка контакта; нормаль направлена от b к a.
// Отрицательное проникновение - зазор: такой контакт лишь не дает сблизиться больше зазора за шаг.
type contact struct {
	a, b        *Body
	point       mgl64.Vec3
	normal      mgl64.Vec3
	penetration float64
	local       mgl64.Vec3

	rA, rB   mgl64.Vec3
	n        row
	t1, t2   row
	target   float64
	push     float64
	friction float64

	accN  float64
	accT1 float64
	accT2 float64
	accP  float64

	invMassA float64
	invMassB float64
	invIA    mgl64.Mat3
	invIB    mgl64.Mat3
}

var planeUp = mgl64.Vec3{0, 1, 0}

// допуски выбора оси: грань предпочтительнее ребра, грань a предпочтительнее грани b
const (
	axisRelTol = 0.95
	axisAbsTol = 0.001
)

// boxPlane - вершины бокса под плоскостью или ближе margin к ней
func boxPlane(box, plane *Body, margin float64, out []contact) []contact {
	n := plane.Quaternion.Rotate(planeUp)
	offset := n.Dot(plane.Position)
	for _, c := range box.Corners() {
		d := n.Dot(c) - offset
		if d >= margin {
			continue
		}
		out = append(out, contact{
			a:           box,
			b:           plane,
			point:       c,
			normal:      n,
			penetration: -d,
		})
	}
	return out
}

// boxBox - теорема о разделяющей оси по 15 осям. Для оси грани контакты получаются
// отсечением противолежащей грани по боковым плоскостям опорной, для оси ребер - одна
// точка между ребрами. Пары с зазором больше margin контактов не дают.
// a - тело с меньшим ID, чтобы контакты пары совпадали между шагами.
func boxBox(a, b *Body, margin float64, out []contact) []contact {
	if b.ID < a.ID {
		a, b = b, a
	}
	t := b.Position.Sub(a.Position)
	ea, eb := a.Shape.HalfExtents, b.Shape.HalfExtents
	var ua, ub [3]mgl64.Vec3
	for i := 0; i < 3; i++ {
		ua[i] = a.axis(i)
		ub[i] = b.axis(i)
	}
	var absR [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			absR[i][j] = math.Abs(ua[i].Dot(ub[j])) + 1e-9
		}
	}

	aSep, aAxis := math.Inf(-1), 0
	for i := 0; i < 3; i++ {
		rb := eb[0]*absR[i][0] + eb[1]*absR[i][1] + eb[2]*absR[i][2]
		s := math.Abs(t.Dot(ua[i])) - ea[i] - rb
		if s > margin {
			return out
		}
		if s > aSep {
			aSep, aAxis = s, i
		}
	}

	bSep, bAxis := math.Inf(-1), 0
	for j := 0; j < 3; j++ {
		ra := ea[0]*absR[0][j] + ea[1]*absR[1][j] + ea[2]*absR[2][j]
		s := math.Abs(t.Dot(ub[j])) - ra - eb[j]
		if s > margin {
			return out
		}
		if s > bSep {
			bSep, bAxis = s, j
		}
	}

	eSep, eI, eJ := math.Inf(-1), 0, 0
	var eN mgl64.Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			n := ua[i].Cross(ub[j])
			l := n.Len()
			if l < 1e-4 {
				continue
			}
			n = n.Mul(1 / l)
			ra := ea[0]*math.Abs(ua[0].Dot(n)) + ea[1]*math.Abs(ua[1].Dot(n)) + ea[2]*math.Abs(ua[2].Dot(n))
			rb := eb[0]*math.Abs(ub[0].Dot(n)) + eb[1]*math.Abs(ub[1].Dot(n)) + eb[2]*math.Abs(ub[2].Dot(n))
			s := math.Abs(t.Dot(n)) - ra - rb
			if s > margin {
				return out
			}
			if s > eSep {
				eSep, eI, eJ, eN = s, i, j, n
			}
		}
	}

	if axisRelTol*eSep > math.Max(aSep, bSep)+axisAbsTol {
		return edgeContact(a, b, eI, eJ, eN, eSep, out)
	}
	if axisRelTol*bSep > aSep+axisAbsTol {
		n := ub[bAxis]
		if t.Dot(n) > 0 {
			n = n.Mul(-1)
		}
		return faceContacts(a, b, false, bAxis, n, margin, out)
	}
	n := ua[aAxis]
	if t.Dot(n) < 0 {
		n = n.Mul(-1)
	}
	return faceContacts(a, b, true, aAxis, n, margin, out)
}

// faceContacts отсекает грань второго тела, наиболее противоположную n, по боковым
// плоскостям опорной грани. n - внешняя нормаль опорной грани, смотрит на второе тело.
func faceContacts(a, b *Body, refIsA bool, axis int, n mgl64.Vec3, margin float64, out []contact) []contact {
	ref, inc := b, a
	normal := n
	if refIsA {
		ref, inc = a, b
		normal = n.Mul(-1)
	}

	he := ref.Shape.HalfExtents
	center := ref.Position.Add(n.Mul(he[axis]))
	k1, k2 := (axis+1)%3, (axis+2)%3
	s1, s2 := ref.axis(k1), ref.axis(k2)

	ie := inc.Shape.HalfExtents
	face, dot := 0, 0.0
	for i := 0; i < 3; i++ {
		if d := inc.axis(i).Dot(n); math.Abs(d) > math.Abs(dot) {
			face, dot = i, d
		}
	}
	in := inc.axis(face)
	if dot > 0 {
		in = in.Mul(-1)
	}
	fc := inc.Position.Add(in.Mul(ie[face]))
	v1 := inc.axis((face + 1) % 3).Mul(ie[(face+1)%3])
	v2 := inc.axis((face + 2) % 3).Mul(ie[(face+2)%3])

	var bufA, bufB [8]mgl64.Vec3
	poly := append(bufA[:0], fc.Add(v1).Add(v2), fc.Sub(v1).Add(v2), fc.Sub(v1).Sub(v2), fc.Add(v1).Sub(v2))
	poly = clipPolygon(poly, bufB[:0], s1, s1.Dot(center)+he[k1])
	poly = clipPolygon(poly, bufA[:0], s1.Mul(-1), -s1.Dot(center)+he[k1])
	poly = clipPolygon(poly, bufB[:0], s2, s2.Dot(center)+he[k2])
	poly = clipPolygon(poly, bufA[:0], s2.Mul(-1), -s2.Dot(center)+he[k2])

	base := len(out)
	for _, p := range poly {
		d := n.Dot(p.Sub(center))
		if d >= margin {
			continue
		}
		out = append(out, contact{
			a:           a,
			b:           b,
			point:       p.Sub(n.Mul(0.5 * d)),
			normal:      normal,
			penetration: -d,
		})
	}
	return reduceManifold(out, base)
}

// clipPolygon - отсечение Сазерленда-Ходжмена полуплоскостью n·x <= offset
func clipPolygon(in, out []mgl64.Vec3, n mgl64.Vec3, offset float64) []mgl64.Vec3 {
	if len(in) == 0 {
		return out
	}
	prev := in[len(in)-1]
	dPrev := n.Dot(prev) - offset
	for _, cur := range in {
		dCur := n.Dot(cur) - offset
		if (dPrev < 0 && dCur > 0) || (dPrev > 0 && dCur < 0) {
			out = append(out, prev.Add(cur.Sub(prev).Mul(dPrev/(dPrev-dCur))))
		}
		if dCur <= 0 {
			out = append(out, cur)
		}
		prev, dPrev = cur, dCur
	}
	return out
}

// reduceManifold оставляет не больше четырех точек, начиная с base:
// самую глубокую, самую далекую от нее и две, дающие наибольшую площадь
func reduceManifold(out []contact, base int) []contact {
	pts := out[base:]
	if len(pts) <= 4 {
		return out
	}
	deepest := 0
	for i := range pts {
		if pts[i].penetration > pts[deepest].penetration {
			deepest = i
		}
	}
	pts[0], pts[deepest] = pts[deepest], pts[0]

	far, best := 1, -1.0
	for i := 1; i < len(pts); i++ {
		if d := pts[i].point.Sub(pts[0].point).LenSqr(); d > best {
			far, best = i, d
		}
	}
	pts[1], pts[far] = pts[far], pts[1]

	edge := pts[1].point.Sub(pts[0].point)
	third, best := 2, -1.0
	for i := 2; i < len(pts); i++ {
		if area := edge.Cross(pts[i].point.Sub(pts[0].point)).LenSqr(); area > best {
			third, best = i, area
		}
	}
	pts[2], pts[third] = pts[third], pts[2]

	// четвертая - по другую сторону от ребра 0-1
	side := edge.Cross(pts[2].point.Sub(pts[0].point))
	fourth, best := 3, math.Inf(-1)
	for i := 3; i < len(pts); i++ {
		if area := -side.Dot(edge.Cross(pts[i].point.Sub(pts[0].point))); area > best {
			fourth, best = i, area
		}
	}
	pts[3], pts[fourth] = pts[fourth], pts[3]
	return out[:base+4]
}

// edgeContact - одна точка посередине между ближайшими точками опорных ребер.
// n - ось ua[i]×ub[j], sep - зазор по ней.
func edgeContact(a, b *Body, i, j int, n mgl64.Vec3, sep float64, out []contact) []contact {
	if n.Dot(b.Position.Sub(a.Position)) < 0 {
		n = n.Mul(-1)
	}
	ea, eb := a.Shape.HalfExtents, b.Shape.HalfExtents

	ca := a.Position
	for k := 0; k < 3; k++ {
		if k == i {
			continue
		}
		ax := a.axis(k)
		if ax.Dot(n) > 0 {
			ca = ca.Add(ax.Mul(ea[k]))
		} else {
			ca = ca.Sub(ax.Mul(ea[k]))
		}
	}
	cb := b.Position
	for k := 0; k < 3; k++ {
		if k == j {
			continue
		}
		ax := b.axis(k)
		if ax.Dot(n) < 0 {
			cb = cb.Add(ax.Mul(eb[k]))
		} else {
			cb = cb.Sub(ax.Mul(eb[k]))
		}
	}

	da, db := a.axis(i), b.axis(j)
	r := ca.Sub(cb)
	cos := da.Dot(db)
	c := da.Dot(r)
	f := db.Dot(r)
	var s float64
	if denom := 1 - cos*cos; denom > 1e-9 {
		s = mgl64.Clamp((cos*f-c)/denom, -ea[i], ea[i])
	}
	u := mgl64.Clamp(cos*s+f, -eb[j], eb[j])
	s = mgl64.Clamp(cos*u-c, -ea[i], ea[i])

	pa := ca.Add(da.Mul(s))
	pb := cb.Add(db.Mul(u))
	return append(out, contact{
		a:           a,
		b:           b,
		point:       pa.Add(pb).Mul(0.5),
		normal:      n.Mul(-1),
		penetration: -sep,
	})
}

// tangents строит ортонормированный базис касательной плоскости
func tangents(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var t1 mgl64.Vec3
	if math.Abs(n[0]) > 0.57735 {
		t1 = mgl64.Vec3{n[1], -n[0], 0}
	} else {
		t1 = mgl64.Vec3{0, n[2], -n[1]}
	}
	t1 = t1.Normalize()
	return t1, n.Cross(t1)
}
