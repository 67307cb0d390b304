// Package rowaccesstest is the unwoven source of the reference model in
// pkg/rowaccess/rowaccesstest.
package rowaccesstest

// Person is the reference model.
type Person struct {
	id        int64 `realm:"objectid"`
	firstName string
	lastName  string `realm:"indexed"`
	email     string `realm:"mapto=Email2"`
	age       int
	nickname  string `realm:"ignored"`
}

func (p *Person) ID() int64 { return p.id }

func (p *Person) SetID(v int64) { p.id = v }

func (p *Person) FirstName() string { return p.firstName }

func (p *Person) SetFirstName(v string) { p.firstName = v }

func (p *Person) LastName() string { return p.lastName }

func (p *Person) SetLastName(v string) { p.lastName = v }

func (p *Person) Email() string { return p.email }

func (p *Person) SetEmail(v string) { p.email = v }

func (p *Person) Age() int { return p.age }

func (p *Person) SetAge(v int) { p.age = v }

func (p *Person) Nickname() string { return p.nickname }

func (p *Person) SetNickname(v string) { p.nickname = v }
