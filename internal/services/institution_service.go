package services

import (
	"database/sql"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fintrack/backend/internal/middleware"
)

type FinancialInstitution struct {
	FiCode   string `json:"fi_code"`
	NameTH   string `json:"name_th"`
	NameEN   string `json:"name_en"`
	LogoData string `json:"logoData,omitempty"`
}

const logosDir = "./static/fi-logos"

var institutionLogos = map[string]string{
	"002": "bbl.svg",
	"004": "kbank.svg",
	"006": "ktb.svg",
	"011": "ttb.svg",
	"014": "scb.svg",
	"017": "citi.svg",
	"018": "smbc.svg",
	"020": "sc.svg",
	"022": "cimb.svg",
	"024": "uob.svg",
	"025": "bay.svg",
	"030": "gsb.svg",
	"033": "ghb.svg",
	"034": "baac.svg",
	"066": "isbt.svg",
	"067": "tisco.svg",
	"069": "kkp.svg",
	"070": "icbc.svg",
	"071": "tcr.svg",
	"073": "lhb.svg",
}

// thaiInstitutions is the seed catalog, keyed by the Bank of Thailand
// standard bank codes.
var thaiInstitutions = []FinancialInstitution{
	{FiCode: "002", NameTH: "ธนาคารกรุงเทพ", NameEN: "Bangkok Bank"},
	{FiCode: "004", NameTH: "ธนาคารกสิกรไทย", NameEN: "Kasikornbank"},
	{FiCode: "006", NameTH: "ธนาคารกรุงไทย", NameEN: "Krung Thai Bank"},
	{FiCode: "011", NameTH: "ธนาคารทหารไทยธนชาต", NameEN: "TMBThanachart Bank"},
	{FiCode: "014", NameTH: "ธนาคารไทยพาณิชย์", NameEN: "Siam Commercial Bank"},
	{FiCode: "017", NameTH: "ธนาคารซิตี้แบงก์", NameEN: "Citibank"},
	{FiCode: "018", NameTH: "ธนาคารซูมิโตโม มิตซุย แบงกิ้ง คอร์ปอเรชั่น", NameEN: "Sumitomo Mitsui Banking Corporation"},
	{FiCode: "020", NameTH: "ธนาคารสแตนดาร์ดชาร์เตอร์ด (ไทย)", NameEN: "Standard Chartered Bank (Thai)"},
	{FiCode: "022", NameTH: "ธนาคารซีไอเอ็มบี ไทย", NameEN: "CIMB Thai Bank"},
	{FiCode: "024", NameTH: "ธนาคารยูโอบี", NameEN: "United Overseas Bank (Thai)"},
	{FiCode: "025", NameTH: "ธนาคารกรุงศรีอยุธยา", NameEN: "Bank of Ayudhya (Krungsri)"},
	{FiCode: "030", NameTH: "ธนาคารออมสิน", NameEN: "Government Savings Bank"},
	{FiCode: "033", NameTH: "ธนาคารอาคารสงเคราะห์", NameEN: "Government Housing Bank"},
	{FiCode: "034", NameTH: "ธนาคารเพื่อการเกษตรและสหกรณ์การเกษตร", NameEN: "Bank for Agriculture and Agricultural Cooperatives"},
	{FiCode: "066", NameTH: "ธนาคารอิสลามแห่งประเทศไทย", NameEN: "Islamic Bank of Thailand"},
	{FiCode: "067", NameTH: "ธนาคารทิสโก้", NameEN: "TISCO Bank"},
	{FiCode: "069", NameTH: "ธนาคารเกียรตินาคินภัทร", NameEN: "Kiatnakin Phatra Bank"},
	{FiCode: "070", NameTH: "ธนาคารไอซีบีซี (ไทย)", NameEN: "ICBC (Thai) Bank"},
	{FiCode: "071", NameTH: "ธนาคารไทยเครดิตเพื่อรายย่อย", NameEN: "Thai Credit Retail Bank"},
	{FiCode: "073", NameTH: "ธนาคารแลนด์ แอนด์ เฮ้าส์", NameEN: "Land and Houses Bank"},
}

type InstitutionService struct {
	db *sql.DB
}

func NewInstitutionService(db *sql.DB) *InstitutionService {
	return &InstitutionService{db: db}
}

// SeedInstitutions loads the static catalog into the database. Existing
// rows are left untouched so renames done in SQL survive restarts.
func (is *InstitutionService) SeedInstitutions() error {
	for _, fi := range thaiInstitutions {
		_, err := is.db.Exec(`
			INSERT INTO financial_institutions (fi_code, name_th, name_en)
			VALUES ($1, $2, $3)
			ON CONFLICT (fi_code) DO NOTHING`,
			fi.FiCode, fi.NameTH, fi.NameEN)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetAllInstitutions returns the full catalog with inline logo data
// @Summary List financial institutions
// @Tags institutions
// @Produce json
// @Success 200 {array} FinancialInstitution
// @Router /fis [get]
func (is *InstitutionService) GetAllInstitutions(w http.ResponseWriter, r *http.Request) {
	rows, err := is.db.Query(`
		SELECT fi_code, name_th, name_en
		FROM financial_institutions
		ORDER BY fi_code`)
	if err != nil {
		log.Printf("[FI] Failed to list institutions: %v", err)
		SendErrorResponse(w, "Failed to fetch institutions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	institutions := []FinancialInstitution{}
	for rows.Next() {
		var fi FinancialInstitution
		if err := rows.Scan(&fi.FiCode, &fi.NameTH, &fi.NameEN); err != nil {
			SendErrorResponse(w, "Failed to fetch institutions", http.StatusInternalServerError, nil)
			return
		}
		fi.LogoData = is.LoadLogo(fi.FiCode)
		institutions = append(institutions, fi)
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	SendJSON(w, http.StatusOK, institutions)
}

func (is *InstitutionService) LoadLogo(fiCode string) string {
	filename, ok := institutionLogos[fiCode]
	if !ok {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(middleware.PlaceholderLogoSVG))
	}

	path := filepath.Join(logosDir, filename)
	if data, err := os.ReadFile(path); err == nil {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data)
	}

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(middleware.PlaceholderLogoSVG))
}
