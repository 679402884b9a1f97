package classfile

const Magic = 0xCAFEBABE

type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

func (f AccessFlags) Has(flag AccessFlags) bool { return f&flag != 0 }

func (f AccessFlags) IsStatic() bool    { return f.Has(AccStatic) }
func (f AccessFlags) IsInterface() bool { return f.Has(AccInterface) }
func (f AccessFlags) IsEnum() bool      { return f.Has(AccEnum) }

type modifier struct {
	flag AccessFlags
	word string
}

var visibilityModifiers = []modifier{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
}

// ClassModifiers returns the source keywords for a class declaration,
// without the class/interface keyword itself.
func (f AccessFlags) ClassModifiers() []string {
	mods := collect(f, visibilityModifiers)
	if f.Has(AccAbstract) && !f.Has(AccInterface) {
		mods = append(mods, "abstract")
	}
	if f.Has(AccFinal) && !f.Has(AccEnum) {
		mods = append(mods, "final")
	}
	return mods
}

func (f AccessFlags) MethodModifiers() []string {
	return collect(f, append(visibilityModifiers,
		modifier{AccStatic, "static"},
		modifier{AccFinal, "final"},
		modifier{AccSynchronized, "synchronized"},
		modifier{AccNative, "native"},
		modifier{AccAbstract, "abstract"},
		modifier{AccStrict, "strictfp"},
	))
}

func (f AccessFlags) FieldModifiers() []string {
	return collect(f, append(visibilityModifiers,
		modifier{AccStatic, "static"},
		modifier{AccFinal, "final"},
		modifier{AccVolatile, "volatile"},
		modifier{AccTransient, "transient"},
	))
}

func collect(f AccessFlags, table []modifier) []string {
	var mods []string
	for _, m := range table {
		if f.Has(m.flag) {
			mods = append(mods, m.word)
		}
	}
	return mods
}

type ConstantTag uint8

const (
	ConstantUtf8               ConstantTag = 1
	ConstantInteger            ConstantTag = 3
	ConstantFloat              ConstantTag = 4
	ConstantLong               ConstantTag = 5
	ConstantDouble             ConstantTag = 6
	ConstantClass              ConstantTag = 7
	ConstantString             ConstantTag = 8
	ConstantFieldref           ConstantTag = 9
	ConstantMethodref          ConstantTag = 10
	ConstantInterfaceMethodref ConstantTag = 11
	ConstantNameAndType        ConstantTag = 12
	ConstantMethodHandle       ConstantTag = 15
	ConstantMethodType         ConstantTag = 16
	ConstantDynamic            ConstantTag = 17
	ConstantInvokeDynamic      ConstantTag = 18
	ConstantModule             ConstantTag = 19
	ConstantPackage            ConstantTag = 20
)

// Wide reports whether the entry occupies two pool slots.
func (t ConstantTag) Wide() bool {
	return t == ConstantLong || t == ConstantDouble
}
