package physics

// Material - именованный материал поверхности
type Material struct {
	Name string
}

// NewMaterial создает материал
func NewMaterial(name string) *Material {
	return &Material{Name: name}
}

// ContactMaterial задает поведение контакта для пары материалов (порядок не важен)
type ContactMaterial struct {
	A, B    *Material
	Surface Surface
}

type materialPair struct {
	a, b *Material
}

type contactMaterials map[materialPair]Surface

func (m contactMaterials) add(cm ContactMaterial) {
	m[materialPair{cm.A, cm.B}] = cm.Surface
	m[materialPair{cm.B, cm.A}] = cm.Surface
}

func (m contactMaterials) lookup(a, b *Material, fallback Surface) Surface {
	if s, ok := m[materialPair{a, b}]; ok {
		return s
	}
	return fallback
}
