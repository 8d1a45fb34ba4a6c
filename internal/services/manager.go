package services

// ServiceManager groups the services the HTTP layer depends on
type ServiceManager interface {
	Sessions() SessionManager
	Surveys() SurveyService
	Mapping() MappingService
	ImportExport() ImportExportService
}

type serviceManager struct {
	sessions     SessionManager
	surveys      SurveyService
	mapping      MappingService
	importExport ImportExportService
}

func NewServiceManager(sessions SessionManager, surveys SurveyService, mapping MappingService, importExport ImportExportService) ServiceManager {
	return &serviceManager{
		sessions:     sessions,
		surveys:      surveys,
		mapping:      mapping,
		importExport: importExport,
	}
}

func (m *serviceManager) Sessions() SessionManager          { return m.sessions }
func (m *serviceManager) Surveys() SurveyService            { return m.surveys }
func (m *serviceManager) Mapping() MappingService           { return m.mapping }
func (m *serviceManager) ImportExport() ImportExportService { return m.importExport }
