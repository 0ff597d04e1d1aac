package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlas_scraper/models"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

const idealistaFixture = `
<html><body>
  <span class="main-info__title-main">Piso en venta en Calle de Serrano, 21</span>
  <span class="main-info__title-minor">Salamanca, Madrid</span>
  <span class="info-data-price">350.000 €</span>
  <div class="info-features">
    <span>85 m²</span>
    <span>3 hab.</span>
    <span>2 baños</span>
  </div>
  <div class="comment"><p>Amplio piso reformado junto al Retiro.</p></div>
  <div class="detail-image"><img src="https://img.idealista.com/1.jpg"/></div>
  <div class="detail-image"><img src="https://img.idealista.com/1.jpg"/></div>
  <div class="detail-image"><img src="https://img.idealista.com/2.jpg"/></div>
</body></html>`

func TestIdealistaParse(t *testing.T) {
	parser, err := ForPlatform(models.PlatformIdealista)
	require.NoError(t, err)

	record, err := parser.Parse(doc(t, idealistaFixture), "https://www.idealista.com/inmueble/12345/")
	require.NoError(t, err)

	assert.Equal(t, 350000.0, record.Price)
	assert.Equal(t, 85.0, record.SquareMeters)
	assert.Equal(t, 3, record.Bedrooms)
	assert.Equal(t, 2, record.Bathrooms)
	assert.Equal(t, "Madrid", record.City)
	assert.Contains(t, record.Address, "Calle de Serrano")
	assert.Equal(t, "Piso", record.PropertyType)
	assert.Equal(t, "Amplio piso reformado junto al Retiro.", record.Description)
	assert.Equal(t, []string{"https://img.idealista.com/1.jpg", "https://img.idealista.com/2.jpg"}, record.Images)
	assert.Equal(t, models.PlatformIdealista, record.Source.Platform)
	assert.False(t, record.Source.Synthetic)
	assert.False(t, record.Source.Partial)
}

const fotocasaFixture = `
<html><body>
  <h1 class="re-DetailHeader-propertyTitle">Ático en venta en Carrer de Balmes</h1>
  <span class="re-DetailHeader-price">495.000 €</span>
  <ul class="re-DetailHeader-features">
    <li>4 habs.</li>
    <li>2 baños</li>
    <li>110 m²</li>
  </ul>
  <div class="re-DetailMap-address">Eixample, Barcelona</div>
  <div class="re-DetailDescription">Ático con terraza y vistas.</div>
</body></html>`

func TestFotocasaParse(t *testing.T) {
	parser, err := ForPlatform(models.PlatformFotocasa)
	require.NoError(t, err)

	record, err := parser.Parse(doc(t, fotocasaFixture), "https://www.fotocasa.es/es/comprar/vivienda/barcelona/1")
	require.NoError(t, err)

	assert.Equal(t, 495000.0, record.Price)
	assert.Equal(t, 110.0, record.SquareMeters)
	assert.Equal(t, 4, record.Bedrooms)
	assert.Equal(t, 2, record.Bathrooms)
	assert.Equal(t, "Barcelona", record.City)
	assert.Equal(t, "Ático", record.PropertyType)
}

const habitacliaFixture = `
<html><body>
  <h1 class="property-title">Casa en venta en Valencia capital</h1>
  <div class="price"><span>275.000 €</span></div>
  <ul class="feature-container">
    <li>120 m²</li>
    <li>4 hab.</li>
    <li>2 baños</li>
  </ul>
  <div class="location">Benimaclet, Valencia</div>
  <div id="js-detail-description">Casa adosada con jardín.</div>
</body></html>`

func TestHabitacliaParse(t *testing.T) {
	parser, err := ForPlatform(models.PlatformHabitaclia)
	require.NoError(t, err)

	record, err := parser.Parse(doc(t, habitacliaFixture), "https://www.habitaclia.com/comprar-vivienda-valencia-1.htm")
	require.NoError(t, err)

	assert.Equal(t, 275000.0, record.Price)
	assert.Equal(t, 120.0, record.SquareMeters)
	assert.Equal(t, 4, record.Bedrooms)
	assert.Equal(t, "Valencia", record.City)
	assert.Equal(t, "Casa", record.PropertyType)
}

func TestParseEmptyPageFails(t *testing.T) {
	for _, platform := range models.AllPlatforms {
		parser, err := ForPlatform(platform)
		require.NoError(t, err)

		_, err = parser.Parse(doc(t, "<html><body><p>Cargando...</p></body></html>"), "https://example.invalid/")
		assert.ErrorIsf(t, err, ErrParse, "platform %s", platform)
	}
}

func TestParseMissingSizeStillReturnsRecord(t *testing.T) {
	html := `<html><body>
	  <span class="main-info__title-main">Piso en venta</span>
	  <span class="info-data-price">199.000 €</span>
	</body></html>`

	parser, _ := ForPlatform(models.PlatformIdealista)
	record, err := parser.Parse(doc(t, html), "https://www.idealista.com/inmueble/7/")
	require.NoError(t, err)
	assert.Equal(t, 199000.0, record.Price)
	assert.Zero(t, record.SquareMeters)
}

func TestForPlatformRejectsUnknown(t *testing.T) {
	_, err := ForPlatform(models.Platform("zillow"))
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestParseEuroAmount(t *testing.T) {
	cases := map[string]float64{
		"350.000 €":    350000,
		"350.000€":     350000,
		"1.250.000 €":  1250000,
		"350 000 €":    350000,
		"1.234,56 €":   1234.56,
		"precio 95000": 95000,
	}
	for in, want := range cases {
		got, ok := parseEuroAmount(in)
		assert.Truef(t, ok, "input %q", in)
		assert.InDeltaf(t, want, got, 0.001, "input %q", in)
	}

	_, ok := parseEuroAmount("a consultar")
	assert.False(t, ok)
}
