package i18n

import (
	"embed"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

type MockLocaleProvider struct {
	LocaleProvider
}

func (provider MockLocaleProvider) GetLocales() ([]string, error) {
	return nil, errors.New("mock error")
}

type FakeLocaleProvider struct{}

func (provider FakeLocaleProvider) GetLocales() ([]string, error) {
	return []string{"fr_FR", "de_DE"}, nil
}

type EmptyLocaleProvider struct{}

func (provider EmptyLocaleProvider) GetLocales() ([]string, error) {
	return []string{"", "es_ES"}, nil
}

type customString string

func (value customString) String() string { return string(value) }

//go:embed __fixtures__/*.json
var testData embed.FS

//go:embed __fixtures_invalid__/*.json
var invalidLocales embed.FS

func useFixtures(t *testing.T, fs embed.FS, dir string) {
	t.Helper()
	originalFS, originalDir, originalProvider := langFS, langDir, localeProvider
	langFS = fs
	langDir = dir
	localeProvider = MockLocaleProvider{}
	ResetForTesting()
	t.Cleanup(func() {
		langFS, langDir, localeProvider = originalFS, originalDir, originalProvider
		ResetForTesting()
	})
}

func TestSimpleTranslations(t *testing.T) {
	t.Run("simple translation", func(t *testing.T) {
		useFixtures(t, testData, "__fixtures__")
		t.Setenv("LANG", "en_GB")

		assert.Equal(t, "Hello World", T("test.simple"))
	})

	t.Run("simple translation for tests", func(t *testing.T) {
		useFixtures(t, testData, "__fixtures__")
		t.Setenv("MFETCH_TEST", "true")

		assert.Equal(t, "test.simple", T("test.simple"))
	})

	t.Run("simple translation to german", func(t *testing.T) {
		useFixtures(t, testData, "__fixtures__")
		t.Setenv("LANG", "de_DE")

		assert.Equal(t, "Hello World but in German", T("test.simple"))
	})

	t.Run("custom type values are interpolated", func(t *testing.T) {
		useFixtures(t, testData, "__fixtures__")
		t.Setenv("LANG", "en_GB")

		actual := Td("test.customType", TData{"val": customString("XYZ")})
		assert.Equal(t, "Value is XYZ", actual)
	})
}

func TestPluralsTranslations(t *testing.T) {
	t.Run("plurals in English", func(t *testing.T) {
		useFixtures(t, testData, "__fixtures__")
		t.Setenv("LANG", "en_GB")

		noPlural := T("test.multiple", Tvars{Data: &TData{"injectedData": "in English"}})
		assert.Equal(t, "Other message in English", noPlural)

		one := T("test.multiple", Tvars{Count: 1, Data: &TData{"injectedData": "in English"}})
		assert.Equal(t, "One message: in English", one)
	})

	t.Run("plurals in German", func(t *testing.T) {
		useFixtures(t, testData, "__fixtures__")
		t.Setenv("LANG", "de_DE")

		noPlural := T("test.multiple", Tvars{Data: &TData{"injectedData": "in English"}})
		assert.Equal(t, "Other message in English but in German", noPlural)

		one := T("test.multiple", Tvars{Count: 1, Data: &TData{"injectedData": "in English"}})
		assert.Equal(t, "One message: in English but in German", one)
	})

	t.Run("plurals in test", func(t *testing.T) {
		t.Setenv("MFETCH_TEST", "true")

		noPlural := T("test.multiple", Tvars{Data: &TData{"injectedData": "in English"}})
		assert.Equal(t, "test.multiple, Arg 1: {Count: 0, Data: &map[injectedData:in English]}", noPlural)

		one := T("test.multiple", Tvars{Count: 1, Data: &TData{"injectedData": "in English1"}})
		assert.Equal(t, "test.multiple, Arg 1: {Count: 1, Data: &map[injectedData:in English1]}", one)
	})
}

func TestMissingTranslation(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")

	assert.Equal(t, "test.missing", T("test.missing"))
}

func TestBadLangDir(t *testing.T) {
	useFixtures(t, testData, "badDir")

	assert.Panics(t, setup)
}

func TestInvalidLocaleFiles(t *testing.T) {
	useFixtures(t, invalidLocales, "__fixtures_invalid__")

	assert.Panics(t, setup)
}

func TestAvailableLocalesKeepsDefaultFirst(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")

	assert.Equal(t, []string{defaultLocale, "de-DE"}, availableLocales())
}

func TestShippedTranslationsLoad(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)
	t.Setenv("LANG", "en_GB")

	assert.Equal(t, "Enter appid or game name", T("prompt.input"))
	assert.Equal(t, "Configuration written to mfetch.json", Td("cmd.config.init.done", TData{"path": "mfetch.json"}))
}

func TestWrongNumberOfArguments(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")

	assert.Panicsf(t, func() {
		T("test.simple", Tvars{}, Tvars{})
	}, "Too many arguments")
}

func TestFallbackToEnglish(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")
	unsetLang(t)

	assert.Equal(t, "Hello World", T("test.simple"))
}

func TestGetUserLocalesNoLang(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")
	unsetLang(t)

	assert.Equal(t, []string{language.English.String()}, getUserLocales())
}

func TestGetUserLocalesProviderSuccess(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")
	localeProvider = FakeLocaleProvider{}
	unsetLang(t)

	locales := getUserLocales()
	assert.Equal(t, []string{"fr_FR", "de_DE"}, locales)
}

func TestGetUserLocalesSkipsEmptyEntries(t *testing.T) {
	useFixtures(t, testData, "__fixtures__")
	localeProvider = EmptyLocaleProvider{}
	unsetLang(t)

	assert.Equal(t, []string{"es_ES"}, getUserLocales())
}

func TestBuildLocalizerLocales(t *testing.T) {
	locales := buildLocalizerLocales([]string{"fr_FR", "de_DE", "fr_FR", ""})
	assert.Equal(t, []string{"fr-FR", "fr", "de-DE", "de"}, locales)

	withInvalid := buildLocalizerLocales([]string{"fr_FR", "???"})
	assert.Equal(t, []string{"fr-FR", "fr"}, withInvalid)
}

func unsetLang(t *testing.T) {
	t.Helper()
	t.Setenv("LANG", "")
	_ = os.Unsetenv("LANG")
}
