package validator

const (
	msgRequired               = "Este campo es obligatorio"
	msgInvalidEmail           = "Ingrese un correo electrónico válido"
	msgInvalidNationalID      = "La cédula debe contener solo números"
	msgInvalidAssociateNumber = "El número de asociado debe contener solo números"
	msgNameTooShort           = "El nombre debe tener al menos 3 caracteres"
	msgNameTooLong            = "El nombre no puede exceder 100 caracteres"
	msgRepresentationRequired = "Debe indicar si representará a otros asociados"
	msgInvalidOption          = "Seleccione una opción válida"

	msgFileTooLarge      = "Archivo %d: El archivo excede el tamaño máximo permitido (máx. %dMB)"
	msgInvalidFileType   = "Archivo %d: Tipo de archivo no permitido. Solo se permiten: %s"
	msgTotalSizeExceeded = "El tamaño total de archivos excede el límite (máx. %dMB total)"
)
