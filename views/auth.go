package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/retreat/client"
)

// Login is the email/password sign-in form. next is where to go after
// signing in.
func Login(p Page, email, next string) templ.Component {
	return Layout(p, component(func(m *markup) {
		m.raw(`<section class="mx-auto max-w-sm"><h1 class="mb-6 text-2xl font-bold">Login</h1>`)
		m.raw(`<form method="post" action="/login/" class="grid gap-4">`)
		csrfField(m, p.CSRF)
		if next != "" {
			m.raw(`<input type="hidden" name="next"`)
			m.attr("value", next)
			m.raw(`/>`)
		}
		m.raw(`<label class="grid gap-1">Email<input type="email" name="email" required autocomplete="email" class="border border-ink px-3 py-2"`)
		m.attr("value", email)
		m.raw(`/></label>`)
		m.raw(`<label class="grid gap-1">Password<input type="password" name="password" required autocomplete="current-password" class="border border-ink px-3 py-2"/></label>`)
		m.raw(`<button type="submit" class="border border-ink bg-ink px-4 py-2 text-white">Login</button></form>`)
		if p.Google {
			m.raw(`<a href="/auth/google/" class="mt-4 block border border-ink px-4 py-2 text-center">Continue with Google</a>`)
		}
		m.raw(`<p class="mt-6 text-sm">No account? <a href="/register/" class="underline">Register</a></p></section>`)
	}))
}

// Register is the account creation form.
func Register(p Page, reg client.Registration) templ.Component {
	return Layout(p, component(func(m *markup) {
		m.raw(`<section class="mx-auto max-w-sm"><h1 class="mb-6 text-2xl font-bold">Register</h1>`)
		m.raw(`<form method="post" action="/register/" class="grid gap-4">`)
		csrfField(m, p.CSRF)
		m.raw(`<label class="grid gap-1">Name<input name="name" required autocomplete="name" class="border border-ink px-3 py-2"`)
		m.attr("value", reg.Name)
		m.raw(`/></label>`)
		m.raw(`<label class="grid gap-1">Email<input type="email" name="email" required autocomplete="email" class="border border-ink px-3 py-2"`)
		m.attr("value", reg.Email)
		m.raw(`/></label>`)
		m.raw(`<label class="grid gap-1">Password<input type="password" name="password" required autocomplete="new-password" class="border border-ink px-3 py-2"/></label>`)
		m.raw(`<button type="submit" class="border border-ink bg-ink px-4 py-2 text-white">Create account</button></form>`)
		if p.Google {
			m.raw(`<a href="/auth/google/" class="mt-4 block border border-ink px-4 py-2 text-center">Continue with Google</a>`)
		}
		m.raw(`<p class="mt-6 text-sm">Already registered? <a href="/login/" class="underline">Login</a></p></section>`)
	}))
}

// Profile shows the signed-in user's profile with forms to edit it and to
// replace the avatar.
func Profile(p Page, u client.User) templ.Component {
	return Layout(p, component(func(m *markup) {
		m.raw(`<section class="mx-auto max-w-lg"><div class="mb-6 flex items-center gap-4">`)
		if u.Image != "" {
			m.raw(`<img class="h-16 w-16 rounded-full object-cover" alt=""`)
			m.attr("src", u.Image)
			m.raw(`/>`)
		}
		m.raw(`<div><h1 class="text-2xl font-bold">`)
		m.text(u.Name)
		m.raw(`</h1><p class="text-sm">`)
		m.text(u.Email)
		m.raw(`</p></div></div>`)

		m.raw(`<form method="post" action="/profile/avatar/" enctype="multipart/form-data" class="mb-8 flex items-center gap-2">`)
		csrfField(m, p.CSRF)
		m.raw(`<input type="file" name="image" accept="image/*" required/><button type="submit" class="border border-ink px-3 py-1">Update picture</button></form>`)

		m.raw(`<form method="post" action="/profile/" class="grid gap-4">`)
		csrfField(m, p.CSRF)
		for _, f := range []struct{ name, label, value string }{
			{"name", "Name", u.Name},
			{"instagram", "Instagram", u.Instagram},
			{"facebook", "Facebook", u.Facebook},
			{"linkedin", "LinkedIn", u.LinkedIn},
		} {
			m.raw(`<label class="grid gap-1">`)
			m.text(f.label)
			m.raw(`<input class="border border-ink px-3 py-2"`)
			m.attr("name", f.name)
			m.attr("value", f.value)
			m.raw(`/></label>`)
		}
		m.raw(`<label class="grid gap-1">Bio<textarea name="bio" rows="4" class="border border-ink px-3 py-2">`)
		m.text(u.Bio)
		m.raw(`</textarea></label>`)
		m.raw(`<button type="submit" class="border border-ink bg-ink px-4 py-2 text-white">Save profile</button></form></section>`)
	}))
}
